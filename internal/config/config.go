package config

import (
	"fmt"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/classifier"
	"github.com/jonesrussell/feedback-insight/internal/llm"
	"github.com/jonesrussell/feedback-insight/internal/logging"
	"github.com/jonesrussell/feedback-insight/internal/pipeline"
)

// Default configuration values.
const (
	defaultServiceName     = "feedback-insight"
	defaultServiceVersion  = "1.0.0"
	defaultServicePort     = 8080
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "feedback"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 25
	defaultDBMaxIdleConns  = 5
	defaultESURL           = "http://localhost:9200"
	defaultESIndex         = "feedback_clusters"
	defaultESTimeoutSec    = 30
	defaultLogLevel        = "info"
	defaultLLMProvider     = "openai"
	defaultLLMModel        = "gpt-4o-mini"
	defaultRequestsPerSec  = 1
	defaultPollInterval    = 5 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds all configuration for the feedback-insight service.
type Config struct {
	Service  ServiceConfig         `yaml:"service"`
	Database DatabaseConfig        `yaml:"database"`
	Search   SearchConfig          `yaml:"search"`
	LLM      llm.Config            `yaml:"llm"`
	Analyzer classifier.Config     `yaml:"analyzer"`
	Pipeline pipeline.Config       `yaml:"pipeline"`
	Poller   pipeline.PollerConfig `yaml:"poller"`
	Alert    AlertConfig           `yaml:"alert"`
	Logging  logging.Config        `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Port            int           `env:"SERVICE_PORT" yaml:"port"`
	Debug           bool          `env:"APP_DEBUG"    yaml:"debug"`
	PollerEnabled   bool          `yaml:"poller_enabled"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres configuration.
type DatabaseConfig struct {
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode         string        `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// SearchConfig holds Elasticsearch configuration for the cluster read
// model. Disabled when Enabled is false.
type SearchConfig struct {
	Enabled  bool          `env:"SEARCH_ENABLED" yaml:"enabled"`
	URL      string        `env:"ELASTICSEARCH_URL" yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Index    string        `yaml:"index"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AlertConfig holds alert delivery configuration.
type AlertConfig struct {
	WebhookURL string        `env:"ALERT_WEBHOOK_URL" yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	cfg, err := load(path, setDefaults)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setSearchDefaults(&cfg.Search)
	setLLMDefaults(&cfg.LLM)
	if cfg.Analyzer.RequestsPerSecond == 0 {
		cfg.Analyzer.RequestsPerSecond = defaultRequestsPerSec
	}
	if cfg.Poller.PollInterval == 0 {
		cfg.Poller.PollInterval = defaultPollInterval
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = time.Hour
	}
}

func setSearchDefaults(s *SearchConfig) {
	if s.URL == "" {
		s.URL = defaultESURL
	}
	if s.Index == "" {
		s.Index = defaultESIndex
	}
	if s.Timeout == 0 {
		s.Timeout = defaultESTimeoutSec * time.Second
	}
}

func setLLMDefaults(l *llm.Config) {
	if l.Provider == "" {
		l.Provider = defaultLLMProvider
	}
	if l.Model == "" {
		l.Model = defaultLLMModel
	}
}

// Validate checks the configuration for fatal problems. A missing LLM
// credential is a configuration-class error and must surface here,
// before any analysis work starts.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return &ValidationError{Field: "service.port", Message: "must be between 1 and 65535"}
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key: %w", llm.ErrMissingAPIKey)
	}
	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}
	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error", "fatal":
		return nil
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}
