package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("JWT_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.DSN())
	assert.Equal(t, "info", cfg.GetLoggerConfig().Level)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestDSNFromParts(t *testing.T) {
	cfg := &Config{DBHost: "h", DBPort: "1", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}
