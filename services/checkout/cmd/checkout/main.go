package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/pkg/authclient"
	pkgdb "github.com/Skotchmaster/marketplace/pkg/db"
	"github.com/Skotchmaster/marketplace/pkg/kafka"
	"github.com/Skotchmaster/marketplace/pkg/logging"
	loggingmw "github.com/Skotchmaster/marketplace/pkg/middleware/logging"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/cache"
	checkoutcfg "github.com/Skotchmaster/marketplace/services/checkout/internal/config"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/httpserver"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/metrics"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/publisher"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/service"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/transport"
)

func main() {
	cfg := checkoutcfg.Load("services/checkout/.env")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	r := &repo.GormRepo{DB: db}
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = r.Migrate(migrateCtx, models.All()...)
	migrateCancel()
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	snapshots := cache.NewCartSnapshots(rdb, cfg.CartTTL)

	policy, err := cfg.Pricing()
	if err != nil {
		log.Fatalf("pricing: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checkout := &service.CheckoutService{
		Repo:        r,
		Policy:      policy,
		Metrics:     m,
		Currency:    cfg.Currency,
		EventsTopic: cfg.EventsTopic,
		Timeout:     cfg.CheckoutTimeout,
	}
	router := &service.SettlementRouter{
		Repo:     r,
		Gateway:  gateway.NewClient(cfg.GatewayURL, cfg.GatewayKey),
		Metrics:  m,
		Currency: cfg.Currency,
	}
	carts := &service.CartService{Snapshots: snapshots, Checkout: checkout, Policy: policy}
	orders := &service.OrderService{Repo: r, Router: router, EventsTopic: cfg.EventsTopic}

	e := echo.New()
	e.HideBanner = true
	e.Validator = transport.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:     &httpserver.CartHTTP{Svc: carts},
		CheckoutHandler: &httpserver.CheckoutHTTP{Checkout: checkout, Router: router, Carts: carts},
		OrderHandler:    &httpserver.OrderHTTP{Svc: orders},
		JWTSecret:       cfg.JWTAccessSecret,
		AuthClient:      authclient.NewClient(cfg.AuthHTTPURL),
		Ready: []httpserver.Check{
			{Name: "postgres", Ping: func(ctx context.Context) error { return pkgdb.Ping(ctx, db) }},
			{Name: "redis", Ping: snapshots.Ping},
		},
		Metrics: metrics.Handler(reg),
	})

	relayCtx, stopRelay := context.WithCancel(logging.IntoContext(context.Background(), logger))
	var wg sync.WaitGroup
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers)
		relay := &publisher.Relay{Repo: r, Writer: producer, Metrics: m}
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(relayCtx)
		}()
	} else {
		logger.Warn("outbox_relay_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.CheckoutTimeout + 15*time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("checkout listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	stopRelay()
	wg.Wait()
	closeAll(logger, db, rdb, producer)

	log.Println("checkout stopped")
}

func closeAll(l *slog.Logger, db *gorm.DB, rdb *redis.Client, producer *kafka.Producer) {
	if producer != nil {
		if err := producer.Close(); err != nil {
			l.Warn("kafka_close_failed", "error", err)
		}
	}
	if err := rdb.Close(); err != nil {
		l.Warn("redis_close_failed", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		l.Warn("db_close_failed", "error", err)
	}
}
