package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverREST     = "rest"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Slot cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "RESTOBOOST_CONFIG"

type Config struct {
	Server struct {
		Address             string `yaml:"address"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	} `yaml:"server"`

	Store StoreConfig `yaml:"store"`

	Storage struct {
		Bucket         string `yaml:"bucket"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxImageSizeMB int    `yaml:"max_image_size_mb"`
	} `yaml:"storage"`

	Slots struct {
		CacheBackend      string `yaml:"cache_backend"`
		CacheTTLSeconds   int    `yaml:"cache_ttl_seconds"`
		BookingFetchLimit int    `yaml:"booking_fetch_limit"`
	} `yaml:"slots"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`

	Auth struct {
		Enabled      bool   `yaml:"enabled"`
		JWTSecret    string `yaml:"jwt_secret"`
		JWTPublicKey string `yaml:"jwt_public_key"`
		Issuer       string `yaml:"issuer"`
	} `yaml:"auth"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Backup BackupConfig `yaml:"backup"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`
}

// StoreConfig selects and configures the data store.
type StoreConfig struct {
	Driver         string  `yaml:"driver"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	ServiceKey     string  `yaml:"service_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	DSN            string  `yaml:"dsn"`
}

// BackupConfig drives periodic copies of a sqlite store.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the YAML config at path (or $RESTOBOOST_CONFIG, or configs/config.yaml).
// Variables from a .env file in the working directory are loaded first so that
// ${ENV_VAR} placeholders can refer to them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Store.Driver == DriverSQLite && cfg.Store.DSN != ":memory:" {
		if err = os.MkdirAll(filepath.Dir(cfg.Store.DSN), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverREST
	}
	if c.Store.TimeoutSeconds <= 0 {
		c.Store.TimeoutSeconds = 10
	}
	if c.Store.Driver == DriverSQLite && c.Store.DSN == "" {
		c.Store.DSN = "data/restoboost.db"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "restaurant-photos"
	}
	if c.Storage.TimeoutSeconds <= 0 {
		c.Storage.TimeoutSeconds = 30
	}
	if c.Storage.MaxImageSizeMB <= 0 {
		c.Storage.MaxImageSizeMB = 10
	}
	if c.Slots.CacheBackend == "" {
		c.Slots.CacheBackend = CacheMemory
	}
	if c.Slots.CacheTTLSeconds == 0 {
		c.Slots.CacheTTLSeconds = 300
	}
	if c.Slots.BookingFetchLimit <= 0 {
		c.Slots.BookingFetchLimit = 500
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "restoboost.mutations"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "restoboost"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverREST:
		if c.Store.BaseURL == "" {
			return errors.New("store.base_url is required for the rest driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Slots.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Redis.Address == "" {
			return errors.New("redis.address is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown slots.cache_backend %q", c.Slots.CacheBackend)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" && c.Store.BaseURL == "" {
		return errors.New("auth needs jwt_secret, jwt_public_key or a store base_url to verify tokens")
	}
	return nil
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutSeconds) * time.Second
}

func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}

// SlotCacheTTL is the lifetime of cached slot lists. Negative values disable caching.
func (c *Config) SlotCacheTTL() time.Duration {
	if c.Slots.CacheTTLSeconds < 0 {
		return 0
	}
	return time.Duration(c.Slots.CacheTTLSeconds) * time.Second
}

func (c *Config) MaxImageSize() int64 {
	return int64(c.Storage.MaxImageSizeMB) * 1024 * 1024
}

// StorageKey is the key used for object storage writes, preferring the service key.
func (c *Config) StorageKey() string {
	if c.Store.ServiceKey != "" {
		return c.Store.ServiceKey
	}
	return c.Store.APIKey
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}
