package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete Baobab configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Catalog is the reference data source
	Catalog CatalogConfig `json:"catalog"`

	// Model tunes the projection pipeline
	Model ModelConfig `json:"model"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// AsyncWorker consumes comparison jobs from the event bus
	AsyncWorker bool `json:"asyncWorker"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty allows any origin without credentials.
	CORSOrigins []string `json:"corsOrigins,omitempty"`
}

// CatalogConfig points at a YAML catalog. An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path string `json:"path"`
}

// ModelConfig holds projection pipeline settings.
type ModelConfig struct {
	// Supported projection horizon, inclusive.
	HorizonStart int `json:"horizonStart"`
	HorizonEnd   int `json:"horizonEnd"`

	// Workers bounds the parallel cells of one comparison.
	Workers int `json:"workers"`

	// BaselineScenario is the reference for relative yield deltas.
	BaselineScenario string `json:"baselineScenario"`

	// Outlook period averaged by the summary view.
	OutlookStart int `json:"outlookStart"`
	OutlookEnd   int `json:"outlookEnd"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns a single-node configuration:
// SQLite, in-memory cache and a channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Model: ModelConfig{
			HorizonStart:     2020,
			HorizonEnd:       2100,
			Workers:          8,
			BaselineScenario: "SSP2-4.5",
			OutlookStart:     2040,
			OutlookEnd:       2060,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./baobab.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ResultTTL:    time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "baobab",
		},
	}
}

// DistributedConfig returns a multi-node configuration:
// PostgreSQL, Redis behind a local L1 and NATS.
func DistributedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "baobab",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
		ResultTTL:      24 * time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
		NATSQueueGroup:    "baobab-workers",
	}
	cfg.AsyncWorker = true
	cfg.Tracing.Enabled = true
	return cfg
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from BAOBAB_* environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("BAOBAB_HOST", &c.Server.Host)
	str("BAOBAB_CATALOG", &c.Catalog.Path)
	str("BAOBAB_BASELINE_SCENARIO", &c.Model.BaselineScenario)
	str("BAOBAB_DB_DRIVER", &c.Repository.Driver)
	str("BAOBAB_SQLITE_PATH", &c.Repository.SQLitePath)
	str("BAOBAB_POSTGRES_HOST", &c.Repository.PostgresHost)
	str("BAOBAB_POSTGRES_USER", &c.Repository.PostgresUser)
	str("BAOBAB_POSTGRES_PASSWORD", &c.Repository.PostgresPassword)
	str("BAOBAB_POSTGRES_DB", &c.Repository.PostgresDB)
	str("BAOBAB_POSTGRES_SSLMODE", &c.Repository.PostgresSSLMode)
	str("BAOBAB_CACHE", &c.Cache.Type)
	str("BAOBAB_REDIS_ADDR", &c.Cache.RedisAddr)
	str("BAOBAB_REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("BAOBAB_BUS", &c.EventBus.Type)
	str("BAOBAB_NATS_URL", &c.EventBus.NATSUrl)
	str("BAOBAB_NATS_TOKEN", &c.EventBus.NATSToken)
	str("BAOBAB_NATS_QUEUE", &c.EventBus.NATSQueueGroup)
	str("BAOBAB_LOG_FORMAT", &c.Logging.Format)
	str("BAOBAB_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("BAOBAB_CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}

	for key, dst := range map[string]*int{
		"BAOBAB_PORT":          &c.Server.Port,
		"BAOBAB_HORIZON_START": &c.Model.HorizonStart,
		"BAOBAB_HORIZON_END":   &c.Model.HorizonEnd,
		"BAOBAB_WORKERS":       &c.Model.Workers,
		"BAOBAB_POSTGRES_PORT": &c.Repository.PostgresPort,
		"BAOBAB_REDIS_DB":      &c.Cache.RedisDB,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if err := flag("BAOBAB_ASYNC_WORKER", &c.AsyncWorker); err != nil {
		return err
	}
	if err := flag("BAOBAB_TRACING", &c.Tracing.Enabled); err != nil {
		return err
	}

	var debug bool
	if err := flag("BAOBAB_DEBUG", &debug); err != nil {
		return err
	}
	if debug {
		c.Logging.Level = "debug"
	}

	if v, ok := lookup("BAOBAB_CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BAOBAB_CACHE_TTL: %w", err)
		}
		c.Cache.ResultTTL = d
	}

	return c.Validate()
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Model.HorizonStart >= c.Model.HorizonEnd {
		return fmt.Errorf("horizon start %d must be before end %d", c.Model.HorizonStart, c.Model.HorizonEnd)
	}
	if c.Model.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Model.Workers)
	}
	if c.Model.OutlookStart > c.Model.OutlookEnd {
		return fmt.Errorf("outlook start %d after end %d", c.Model.OutlookStart, c.Model.OutlookEnd)
	}
	switch c.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported repository driver: %s", c.Repository.Driver)
	}
	switch c.Cache.Type {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
	switch c.EventBus.Type {
	case "channel", "nats":
	default:
		return fmt.Errorf("unsupported event bus type: %s", c.EventBus.Type)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}
	return nil
}
