package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/testdb"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil, nil).Code)

	env.redis.Close()
	rec := env.do(t, http.MethodGet, "/health/ready", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	c := testdb.SeedVendor(t, env.db, "metrics", [2]int64{1000, 5})
	who := customer()

	env.addToCart(t, who, c.Variants[0].ID, 1)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/checkout", shippingBody("COD"), who).Code)

	rec := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `marketplace_checkout_orders_created_total{payment_method="COD"} 1`)
}
