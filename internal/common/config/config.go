// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct. It is loaded once
// at startup and passed down explicitly.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Store         StoreConfig         `mapstructure:"store"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Integrations  IntegrationConfig   `mapstructure:"integrations"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	WebhookPath     string        `mapstructure:"webhook_path"`
	WebhookSecret   string        `mapstructure:"webhook_secret"`
	SignatureHeader string        `mapstructure:"signature_header"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdle         int           `mapstructure:"max_idle"`
	SSLMode         string        `mapstructure:"sslmode"`
	ApplicationName string        `mapstructure:"application_name"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
	if p.ApplicationName != "" {
		dsn += " application_name=" + p.ApplicationName
	}
	return dsn
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility

	// MaxRetries of 0 keeps the client default.
	MaxRetries     int           `mapstructure:"max_retries"`
	DisableRetry   bool          `mapstructure:"disable_retry"`
	RetryOnStatus  []int         `mapstructure:"retry_on_status"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GetAddresses merges URL into Addresses.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// --- Specific Configuration Sections ---

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend         string `mapstructure:"backend"` // "postgres" or "elasticsearch"
	DefaultDatabase string `mapstructure:"default_database"`
	DocumentsTable  string `mapstructure:"documents_table"`
	UsersTable      string `mapstructure:"users_table"`
}

const (
	StoreBackendPostgres      = "postgres"
	StoreBackendElasticsearch = "elasticsearch"
)

// NotificationConfig holds the decision engine settings.
type NotificationConfig struct {
	ThrottleMinutes   int               `mapstructure:"throttle_minutes"`
	DryRun            bool              `mapstructure:"dry_run"`
	BaseURL           string            `mapstructure:"base_url"`
	FallbackToPayload bool              `mapstructure:"fallback_to_payload"`
	ProcessingWindow  time.Duration     `mapstructure:"processing_window"`
	EventHeaders      []string          `mapstructure:"event_headers"`
	Applications      KindConfig        `mapstructure:"applications"`
	PayStubs          KindConfig        `mapstructure:"pay_stubs"`
	Collections       CollectionsConfig `mapstructure:"collections"`
}

// ThrottleWindow converts ThrottleMinutes into a duration.
func (n NotificationConfig) ThrottleWindow() time.Duration {
	return time.Duration(n.ThrottleMinutes) * time.Minute
}

type KindConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CollectionsConfig maps collection identifiers onto record kinds.
type CollectionsConfig struct {
	Applications []string `mapstructure:"applications"`
	PayStubs     []string `mapstructure:"pay_stubs"`
	Employees    string   `mapstructure:"employees"`
}

// IntegrationConfig holds settings for AWS delivery and audit.
type IntegrationConfig struct {
	AWS struct {
		Region   string `mapstructure:"region"`
		Endpoint string `mapstructure:"endpoint"` // optional override, e.g. localstack
		SES      struct {
			FromEmail        string  `mapstructure:"from_email"`
			FromName         string  `mapstructure:"from_name"`
			ConfigurationSet string  `mapstructure:"configuration_set"`
			MaxSendRate      float64 `mapstructure:"max_send_rate"` // messages per second
		} `mapstructure:"ses"`
		SNS struct {
			AuditTopicARN string `mapstructure:"audit_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
