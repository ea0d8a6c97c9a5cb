package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "")
	t.Setenv("NOTIFY_RETRY_BASE_DELAY", "")
	cfg := Load()

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "friend_notifications", cfg.RabbitMQNotifyQueue)
	assert.False(t, cfg.NotifyEnabled)
	assert.Equal(t, 5, cfg.NotifyMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.NotifyRetryBaseDelay)
	assert.False(t, cfg.ElasticsearchEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("COOKIE_SECURE", "not-a-bool")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ELASTICSEARCH_ADDRS", "http://es1:9200,http://es2:9200")
	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.False(t, cfg.CookieSecure, "invalid bool falls back to default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.ESAddrs())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "calcount", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/calcount?sslmode=disable", cfg.PostgresDSN())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{StoreDriver: "memory", JWTSecret: "devaccesssecret", Env: "development"}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.StoreDriver = "sqlite"
	assert.ErrorContains(t, c.Validate(), "STORE_DRIVER")

	c = base()
	c.JWTSecret = "  "
	assert.Error(t, c.Validate())

	c = base()
	c.Env = "production"
	assert.ErrorContains(t, c.Validate(), "production")
	c.JWTSecret = "a-real-secret"
	assert.NoError(t, c.Validate())
}
