package config

import (
	"log"
	"time"

	"github.com/Skotchmaster/marketplace/pkg/config"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
)

type ServiceConfig struct {
	config.Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	EventsTopic string

	ShippingFeePerVendor int64
	PlatformFeeRate      string
	Currency             string

	GatewayURL string
	GatewayKey string

	CheckoutTimeout time.Duration
}

func Load(envFiles ...string) ServiceConfig {
	cfg := FromEnv(envFiles...)

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	config.MustNonEmpty(cfg.RedisAddr, "REDIS_ADDR")
	config.MustNonEmpty(cfg.GatewayURL, "PAYMENT_GATEWAY_URL")

	if _, err := cfg.Pricing(); err != nil {
		log.Fatalf("invalid pricing config: %v", err)
	}
	return cfg
}

// FromEnv reads the environment without enforcing required values.
func FromEnv(envFiles ...string) ServiceConfig {
	base := config.Load(envFiles...)
	if base.ServiceName == "" {
		base.ServiceName = "checkout"
	}

	return ServiceConfig{
		Config: base,

		RedisAddr:     config.EnvDefault("REDIS_ADDR", ""),
		RedisPassword: config.EnvDefault("REDIS_PASSWORD", ""),
		RedisDB:       config.EnvIntDefault("REDIS_DB", 0),
		CartTTL:       time.Duration(config.EnvIntDefault("CART_TTL_MINUTES", 7*24*60)) * time.Minute,

		EventsTopic: config.EnvDefault("ORDER_EVENTS_TOPIC", "order_events"),

		ShippingFeePerVendor: config.EnvInt64Default("SHIPPING_FEE_PER_VENDOR", 30000),
		PlatformFeeRate:      config.EnvDefault("PLATFORM_FEE_RATE", "0.05"),
		Currency:             config.EnvDefault("CURRENCY", "VND"),

		GatewayURL: config.EnvDefault("PAYMENT_GATEWAY_URL", ""),
		GatewayKey: config.EnvDefault("PAYMENT_GATEWAY_KEY", ""),

		CheckoutTimeout: config.EnvSecondsDefault("CHECKOUT_TIMEOUT_SECONDS", 15*time.Second),
	}
}

func (c ServiceConfig) Pricing() (pricing.Policy, error) {
	return pricing.NewPolicy(c.ShippingFeePerVendor, c.PlatformFeeRate)
}
