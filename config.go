package taskgate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/service/anomaly"
	"github.com/viant/taskgate/service/approval/postgres"
	"github.com/viant/taskgate/service/orchestrator"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFS       = "fs"
	BackendPostgres = "postgres"
)

// Tracing exporters.
const (
	ExporterStdout = "stdout"
	ExporterFile   = "file"
	ExporterOTLP   = "otlp"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TASKGATE_"

// Config is the serialisable runtime configuration. The zero value is not
// usable; start from DefaultConfig or LoadConfig.
type Config struct {
	Logger       logger.Config       `yaml:"logger"`
	Policy       PolicyConfig        `yaml:"policy"`
	Orchestrator orchestrator.Config `yaml:"orchestrator"`
	Anomaly      anomaly.Config      `yaml:"anomaly"`
	Storage      StorageConfig       `yaml:"storage"`
	Cache        CacheConfig         `yaml:"cache"`
	Notifier     NotifierConfig      `yaml:"notifier"`
	Tracing      TracingConfig       `yaml:"tracing"`
	HTTP         HTTPConfig          `yaml:"http"`
}

// PolicyConfig locates the policy rules; an empty path uses the built-in rules.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig selects where approval requests and audit partitions live.
// The memory backend keeps both in process. The fs backend writes both under
// BaseURL. The postgres backend stores approvals in Postgres and audit
// partitions under BaseURL.
type StorageConfig struct {
	Backend  string              `yaml:"backend"`
	BaseURL  string              `yaml:"baseURL"`
	Postgres postgres.PoolConfig `yaml:"postgres"`
	Migrate  bool                `yaml:"migrate"`
}

// CacheConfig configures the decided-status cache of the approval store.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxCost int64         `yaml:"maxCost"`
	TTL     time.Duration `yaml:"ttl"`
}

// NATSConfig configures the nats notification sink.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// NotifierConfig configures notification delivery.
type NotifierConfig struct {
	Providers       []string      `yaml:"providers"`
	NATS            NATSConfig    `yaml:"nats"`
	Outbox          string        `yaml:"outbox"`
	Workers         int           `yaml:"workers"`
	MaxRetries      int           `yaml:"maxRetries"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerReset    time.Duration `yaml:"breakerReset"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Exporter       string `yaml:"exporter"`
	OutputFile     string `yaml:"outputFile"`
	Endpoint       string `yaml:"endpoint"`
	Insecure       bool   `yaml:"insecure"`
	ServiceVersion string `yaml:"serviceVersion"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	BodyLimit       int64         `yaml:"bodyLimit"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns an in-memory configuration with a log notifier.
func DefaultConfig() *Config {
	return &Config{
		Logger:       logger.Config{Level: "info", Service: "taskgate", Format: "json"},
		Orchestrator: orchestrator.DefaultConfig(),
		Anomaly:      anomaly.DefaultConfig(),
		Storage:      StorageConfig{Backend: BackendMemory, Migrate: true},
		Cache:        CacheConfig{Enabled: true, MaxCost: 1 << 20, TTL: time.Hour},
		Notifier: NotifierConfig{
			Providers:       []string{"log"},
			Outbox:          BackendMemory,
			Workers:         1,
			MaxRetries:      3,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Tracing: TracingConfig{Exporter: ExporterStdout, ServiceVersion: "dev"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			BodyLimit:       1 << 20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// LoadConfig returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML location may be any afs URL; an empty location skips the file.
func LoadConfig(ctx context.Context, location string) (*Config, error) {
	cfg := DefaultConfig()
	if location != "" {
		if err := loadYAML(ctx, cfg, location); err != nil {
			return nil, fmt.Errorf("config yaml: %w", err)
		}
	}
	if err := loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return cfg, nil
}

func loadYAML(ctx context.Context, cfg *Config, location string) error {
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return fmt.Errorf("read %s: %w", location, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", location, err)
	}
	return nil
}

// loadEnv overlays TASKGATE_* variables onto cfg. Only non-empty values
// override; malformed values are reported together.
func loadEnv(cfg *Config) error {
	var errs []error
	setString(&cfg.Logger.Level, "LOG_LEVEL")
	setString(&cfg.Logger.Format, "LOG_FORMAT")
	errs = append(errs, setBool(&cfg.Logger.Async, "LOG_ASYNC"))
	setString(&cfg.Policy.Path, "POLICY_PATH")

	errs = append(errs,
		setDuration(&cfg.Orchestrator.PollingInterval, "POLLING_INTERVAL"),
		setInt(&cfg.Orchestrator.Workers, "WORKERS"),
		setDuration(&cfg.Orchestrator.ExecutionTimeout, "EXECUTION_TIMEOUT"),
		setDuration(&cfg.Anomaly.Interval, "ANOMALY_INTERVAL"),
		setBool(&cfg.Anomaly.PauseOnAnomaly, "PAUSE_ON_ANOMALY"),
	)

	setString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setString(&cfg.Storage.BaseURL, "STORAGE_URL")
	setString(&cfg.Storage.Postgres.DSN, "POSTGRES_DSN")
	errs = append(errs,
		setBool(&cfg.Storage.Migrate, "POSTGRES_MIGRATE"),
		setBool(&cfg.Cache.Enabled, "CACHE_ENABLED"),
	)

	if v := os.Getenv(EnvPrefix + "NOTIFIERS"); v != "" {
		cfg.Notifier.Providers = splitList(v)
	}
	setString(&cfg.Notifier.NATS.URL, "NATS_URL")
	setString(&cfg.Notifier.NATS.Subject, "NATS_SUBJECT")
	setString(&cfg.Notifier.Outbox, "OUTBOX")

	errs = append(errs, setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED"))
	setString(&cfg.Tracing.Exporter, "TRACING_EXPORTER")
	setString(&cfg.Tracing.OutputFile, "TRACING_OUTPUT")
	setString(&cfg.Tracing.Endpoint, "OTLP_ENDPOINT")

	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	return errors.Join(errs...)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Orchestrator.Validate(); err != nil {
		return err
	}
	if c.Anomaly.Interval <= 0 {
		return fmt.Errorf("anomaly.interval must be positive")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFS:
		if c.Storage.BaseURL == "" {
			return fmt.Errorf("storage.baseURL is required for the %s backend", BackendFS)
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the %s backend", BackendPostgres)
		}
		if c.Storage.BaseURL == "" {
			return fmt.Errorf("storage.baseURL is required for audit partitions")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, fs, postgres", c.Storage.Backend)
	}
	switch c.Notifier.Outbox {
	case BackendMemory:
	case BackendFS:
		if c.Storage.BaseURL == "" {
			return fmt.Errorf("storage.baseURL is required for the fs outbox")
		}
	default:
		return fmt.Errorf("notifier.outbox %q is not one of memory, fs", c.Notifier.Outbox)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case ExporterStdout:
		case ExporterFile:
			if c.Tracing.OutputFile == "" {
				return fmt.Errorf("tracing.outputFile is required for the file exporter")
			}
		case ExporterOTLP:
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("tracing.endpoint is required for the otlp exporter")
			}
		default:
			return fmt.Errorf("tracing.exporter %q is not one of stdout, file, otlp", c.Tracing.Exporter)
		}
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var ret []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
