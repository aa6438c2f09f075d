package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	MongoDB     MongoDBConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Persistence PersistenceConfig
	Locks       LocksConfig
	Redis       RedisConfig
	Collections CollectionsConfig
	Vouchers    VouchersConfig
	RateLimit   RateLimitConfig
	LogLevel    string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// StorageConfig selects the persistence backend: "mongo" or "memory"
type StorageConfig struct {
	Driver string
}

// PersistenceConfig bounds every gateway call
type PersistenceConfig struct {
	Timeout time.Duration
}

// LocksConfig selects the lock backend: "local" or "redis"
type LocksConfig struct {
	Driver string
	TTL    time.Duration
}

// RedisConfig holds Redis connection settings for the redis lock driver
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CollectionsConfig holds lifecycle settings
type CollectionsConfig struct {
	CollectorPoolPolicy string // "all" or "city"
}

// VouchersConfig holds ledger settings
type VouchersConfig struct {
	ExpirySweep string // cron spec
	Catalog     []models.VoucherOption
}

// RateLimitConfig limits the unauthenticated auth endpoints per client IP
type RateLimitConfig struct {
	AuthPerMinute int
}

// TokenTTL returns the access token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiresIn) * time.Second
}

// Load loads configuration from environment variables and config files.
// Nested keys map to env vars with underscores, e.g. MONGODB_URI.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// It's okay if config file is not found, we'll use environment variables
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(config.Vouchers.Catalog) == 0 {
		config.Vouchers.Catalog = models.DefaultVoucherCatalog
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "mongo":
		if c.MongoDB.URI == "" {
			return errors.New("config: MongoDB.URI is required for the mongo storage driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Locks.Driver {
	case "local":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("config: Redis.Addr is required for the redis lock driver")
		}
	default:
		return fmt.Errorf("config: unknown lock driver %q", c.Locks.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("config: JWT.Secret is required")
	}
	for _, opt := range c.Vouchers.Catalog {
		if opt.PointsCost <= 0 || opt.MonetaryValue <= 0 {
			return fmt.Errorf("config: invalid voucher option %+v", opt)
		}
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "recyclehub")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Storage.Driver", "mongo")
	v.SetDefault("Persistence.Timeout", 5*time.Second)
	v.SetDefault("Locks.Driver", "local")
	v.SetDefault("Locks.TTL", 10*time.Second)
	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Collections.CollectorPoolPolicy", "city")
	v.SetDefault("Vouchers.ExpirySweep", "@hourly")
	v.SetDefault("RateLimit.AuthPerMinute", 20)
	v.SetDefault("LogLevel", "info")
}
