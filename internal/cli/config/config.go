package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. METASTORE_DATABASE_URL
const EnvPrefix = "METASTORE"

// Config represents the metastore configuration
type Config struct {
	Database    DatabaseConfig `mapstructure:"database"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Store       StoreConfig    `mapstructure:"store"`
	Server      ServerConfig   `mapstructure:"server"`
	Log         LogConfig      `mapstructure:"log"`
	Independent []string       `mapstructure:"independent"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// CacheConfig selects the metadata cache backend
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the redis connection used by the redis backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig tunes the metadata store
type StoreConfig struct {
	PageSize     int    `mapstructure:"page_size"`
	DefaultLimit int    `mapstructure:"default_limit"`
	BaseURL      string `mapstructure:"base_url"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Pprof          bool          `mapstructure:"pprof"`
	// RateLimit is requests per minute per principal or address; 0 disables it
	RateLimit int `mapstructure:"rate_limit"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// TypeSubtype is one entry of the independent metadata list
type TypeSubtype struct {
	Type    string
	Subtype string
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads the configuration from path, or from metastore.yml in the
// working directory when path is empty. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "file:metastore.db?_foreign_keys=on")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.prefix", "metastore:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("store.page_size", 50)
	v.SetDefault("store.default_limit", 25)
	v.SetDefault("store.base_url", "http://localhost:3000")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.pprof", false)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("independent", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metastore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DATABASE_URL is honoured the way most deploy tooling sets it
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind database url: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// IndependentTypes parses the independent list. Entries are "type" or
// "type:subtype"; a bare type covers every subtype.
func (c *Config) IndependentTypes() ([]TypeSubtype, error) {
	out := make([]TypeSubtype, 0, len(c.Independent))
	for _, entry := range c.Independent {
		typ, subtype, _ := strings.Cut(strings.TrimSpace(entry), ":")
		if typ == "" {
			return nil, fmt.Errorf("invalid independent entry %q: missing type", entry)
		}
		if subtype == "" {
			subtype = "*"
		}
		out = append(out, TypeSubtype{Type: typ, Subtype: subtype})
	}
	return out, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "pgx", "postgres", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, got: %s", cfg.Database.Driver)
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got: %s", cfg.Cache.Backend)
	}

	if cfg.Store.PageSize <= 0 {
		return fmt.Errorf("store.page_size must be positive, got: %d", cfg.Store.PageSize)
	}
	if cfg.Store.DefaultLimit <= 0 {
		return fmt.Errorf("store.default_limit must be positive, got: %d", cfg.Store.DefaultLimit)
	}

	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got: %d", cfg.Server.RateLimit)
	}

	u, err := url.Parse(cfg.Store.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("store.base_url must be an absolute URL, got: %s", cfg.Store.BaseURL)
	}

	if _, err := cfg.IndependentTypes(); err != nil {
		return err
	}
	return nil
}
