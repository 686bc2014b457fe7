package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "acme_storefront", cfg.Database.Name)
	assert.Equal(t, 300*time.Second, cfg.Redis.TTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Features.EnableProductCaching)
	assert.False(t, cfg.Features.EnableNotifications)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ENABLE_PRODUCT_CACHING", "false")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Features.EnableProductCaching)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nDB_NAME=shop_test\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("DB_NAME", "from-env")
	t.Cleanup(func() { os.Unsetenv("JWT_SECRET") })

	cfg := Load()

	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "from-env", cfg.Database.Name)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", d.ConnectionString())
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	cfg := Load()

	cfg.Auth.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.Server.RateLimitBurst = 0
	assert.Error(t, cfg.Validate())
}
