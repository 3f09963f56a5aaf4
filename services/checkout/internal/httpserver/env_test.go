package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/pkg/tokens"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/cache"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/metrics"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/service"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/testdb"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/transport"
)

var testSecret = []byte("checkout-http-test-secret")

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, in gateway.SessionRequest) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Session{ID: "cs_" + in.Reference, URL: "https://pay.example/" + in.Reference}, nil
}

func (g *fakeGateway) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type caller struct {
	ID   uuid.UUID
	Role string
}

func customer() *caller { return &caller{ID: uuid.New(), Role: tokens.RoleUser} }
func admin() *caller    { return &caller{ID: uuid.New(), Role: tokens.RoleAdmin} }

type testEnv struct {
	e     *echo.Echo
	db    *gorm.DB
	redis *miniredis.Miniredis
	gw    *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testdb.Open(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	snaps := cache.NewCartSnapshots(rdb, time.Hour)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := &repo.GormRepo{DB: db}
	policy := pricing.DefaultPolicy()
	gw := &fakeGateway{}

	co := &service.CheckoutService{Repo: r, Policy: policy, Metrics: m, Currency: "VND", EventsTopic: service.DefaultEventsTopic}
	router := &service.SettlementRouter{Repo: r, Gateway: gw, Metrics: m, Currency: "VND"}
	carts := &service.CartService{Snapshots: snaps, Checkout: co, Policy: policy}
	orders := &service.OrderService{Repo: r, Router: router, EventsTopic: service.DefaultEventsTopic}

	e := echo.New()
	e.Validator = transport.NewValidator()
	Register(e, &Deps{
		CartHandler:     &CartHTTP{Svc: carts},
		CheckoutHandler: &CheckoutHTTP{Checkout: co, Router: router, Carts: carts},
		OrderHandler:    &OrderHTTP{Svc: orders},
		JWTSecret:       testSecret,
		Ready:           []Check{{Name: "redis", Ping: snaps.Ping}},
		Metrics:         metrics.Handler(reg),
	})

	return &testEnv{e: e, db: db, redis: mr, gw: gw}
}

func (env *testEnv) do(t *testing.T, method, target string, body any, who *caller, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if who != nil {
		tok, err := tokens.SignAccessToken(who.ID.String(), who.Role, "buyer@example.com", time.Now().Add(time.Hour), testSecret)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: tok})
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (env *testEnv) addToCart(t *testing.T, who *caller, variantID uuid.UUID, qty int) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/cart/items", map[string]any{"variant_id": variantID.String(), "quantity": qty}, who)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func shippingBody(method string) map[string]any {
	return map[string]any{
		"shipping": map[string]any{
			"name":    "Nguyen Van An",
			"phone":   "0900000000",
			"address": "12 Le Loi",
			"city":    "Ho Chi Minh",
		},
		"payment_method": method,
	}
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields"`
}
