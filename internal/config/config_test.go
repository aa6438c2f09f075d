package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "8080")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "local", cfg.Locks.Driver)
	assert.Equal(t, "city", cfg.Collections.CollectorPoolPolicy)
	assert.Equal(t, 5*time.Second, cfg.Persistence.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, models.DefaultVoucherCatalog, cfg.Vouchers.Catalog)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
jwt:
  secret: from-file
storage:
  driver: memory
collections:
  collectorPoolPolicy: all
persistence:
  timeout: 2s
vouchers:
  expirySweep: "@every 10m"
  catalog:
    - pointsCost: 50
      monetaryValue: 20
      label: small
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "all", cfg.Collections.CollectorPoolPolicy)
	assert.Equal(t, 2*time.Second, cfg.Persistence.Timeout)
	assert.Equal(t, "@every 10m", cfg.Vouchers.ExpirySweep)
	assert.Equal(t, []models.VoucherOption{{PointsCost: 50, MonetaryValue: 20, Label: "small"}}, cfg.Vouchers.Catalog)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			JWT:      JWTConfig{Secret: "x"},
			Storage:  StorageConfig{Driver: "memory"},
			Locks:    LocksConfig{Driver: "local"},
			Vouchers: VouchersConfig{Catalog: models.DefaultVoucherCatalog},
		}
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.JWT.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Locks.Driver = "redis"
	assert.Error(t, cfg.Validate(), "redis needs an address")
	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Vouchers.Catalog = []models.VoucherOption{{PointsCost: 0, MonetaryValue: 10}}
	assert.Error(t, cfg.Validate())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("RH_STR", " value ")
	t.Setenv("RH_BOOL", "true")
	t.Setenv("RH_INT", "nope")
	t.Setenv("RH_DUR", "90s")

	assert.Equal(t, "value", GetEnv("RH_STR", "d"))
	assert.Equal(t, "d", GetEnv("RH_MISSING", "d"))
	assert.True(t, GetEnvAsBool("RH_BOOL", false))
	assert.Equal(t, 7, GetEnvAsInt("RH_INT", 7))
	assert.Equal(t, 90*time.Second, GetEnvAsDuration("RH_DUR", time.Second))
}
