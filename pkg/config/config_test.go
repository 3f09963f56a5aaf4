package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"kafka:9092", "kafka2:9092"}, CSV(" kafka:9092, ,kafka2:9092 "))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("CHECKOUT_TEST_INT", "42")
	t.Setenv("CHECKOUT_TEST_BAD", "forty")
	t.Setenv("CHECKOUT_TEST_SECONDS", "3")

	assert.Equal(t, 42, EnvIntDefault("CHECKOUT_TEST_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("CHECKOUT_TEST_BAD", 1))
	assert.Equal(t, int64(42), EnvInt64Default("CHECKOUT_TEST_INT", 7))
	assert.Equal(t, "fallback", EnvDefault("CHECKOUT_TEST_MISSING", "fallback"))
	assert.Equal(t, 3*time.Second, EnvSecondsDefault("CHECKOUT_TEST_SECONDS", time.Second))
	assert.Equal(t, time.Second, EnvSecondsDefault("CHECKOUT_TEST_MISSING", time.Second))
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("SERVICE_NAME", "checkout")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()
	assert.Equal(t, "checkout", cfg.ServiceName)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, []byte("secret"), cfg.JWTAccessSecret)
}
