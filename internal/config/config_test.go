package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromAppliesDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
db:
  host: localhost
  port: 5432
jwt:
  secret: dev
store:
  driver: memory
`), 0o644))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("STORE_DRIVER", "postgres")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "/uploads", cfg.Storage.URLPrefix)
	assert.Equal(t, 5, cfg.Outbox.MaxRetries)
}

func TestShippedConfigRequiresVerifiedEmailOutsideLocal(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("JWT_REQUIRE_VERIFIED", "")

	prod, err := LoadFrom("production", filepath.Join("..", "..", "config"))
	require.NoError(t, err)
	assert.True(t, prod.JWT.RequireVerified)
	assert.Equal(t, "postgres", prod.Store.Driver)

	local, err := LoadFrom("local", filepath.Join("..", "..", "config"))
	require.NoError(t, err)
	assert.False(t, local.JWT.RequireVerified)
	assert.Equal(t, "memory", local.Store.Driver)
}
