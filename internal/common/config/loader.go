// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv lists additional environment names accepted for a key, on top
// of the derived NOTIFICATIONS_DRY_RUN style names.
var legacyEnv = map[string][]string{
	"notifications.throttle_minutes":       {"NOTIFICATION_THROTTLE_MINUTES"},
	"notifications.dry_run":                {"DRY_RUN"},
	"notifications.base_url":               {"APP_BASE_URL"},
	"notifications.applications.enabled":   {"ENABLE_APPLICATION_NOTIFICATIONS"},
	"notifications.pay_stubs.enabled":      {"ENABLE_PAY_STUB_NOTIFICATIONS"},
	"notifications.collections.employees":  {"EMPLOYEES_COLLECTION_ID"},
	"store.default_database":               {"DATABASE_ID"},
	"server.webhook_secret":                {"WEBHOOK_SECRET"},
	"database.postgres.user":               {"DB_USER"},
	"database.postgres.password":           {"DB_PASSWORD"},
	"integrations.aws.region":              {"AWS_REGION"},
	"integrations.aws.ses.from_email":      {"SES_FROM_EMAIL"},
	"integrations.aws.sns.audit_topic_arn": {"SNS_AUDIT_TOPIC_ARN"},
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for key, names := range legacyEnv {
		derived := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		_ = v.BindEnv(append([]string{key, derived}, names...)...)
	}
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking towards the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal
// even when the config file omits the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "notification-dispatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("server.webhook_secret", "")
	v.SetDefault("server.signature_header", "X-Webhook-Signature")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.application_name", "notification-dispatcher")
	v.SetDefault("database.postgres.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.postgres.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.elasticsearch.addresses", []string{})
	v.SetDefault("database.elasticsearch.url", "")
	v.SetDefault("database.elasticsearch.max_retries", 3)
	v.SetDefault("database.elasticsearch.disable_retry", false)
	v.SetDefault("database.elasticsearch.retry_on_status", []int{429, 502, 503, 504})
	v.SetDefault("database.elasticsearch.request_timeout", 5*time.Second)
	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("database.redis.dial_timeout", 5*time.Second)
	v.SetDefault("database.redis.read_timeout", 3*time.Second)
	v.SetDefault("database.redis.write_timeout", 3*time.Second)

	v.SetDefault("store.backend", StoreBackendPostgres)
	v.SetDefault("store.default_database", "")
	v.SetDefault("store.documents_table", "documents")
	v.SetDefault("store.users_table", "users")

	v.SetDefault("notifications.throttle_minutes", 10)
	v.SetDefault("notifications.dry_run", false)
	v.SetDefault("notifications.base_url", "")
	v.SetDefault("notifications.fallback_to_payload", false)
	v.SetDefault("notifications.processing_window", 30*time.Second)
	v.SetDefault("notifications.event_headers", []string{"X-Appwrite-Event", "X-Event-Name", "X-Event"})
	v.SetDefault("notifications.applications.enabled", true)
	v.SetDefault("notifications.pay_stubs.enabled", true)
	v.SetDefault("notifications.collections.applications", []string{"applications"})
	v.SetDefault("notifications.collections.pay_stubs", []string{"pay_stubs"})
	v.SetDefault("notifications.collections.employees", "employees")

	v.SetDefault("integrations.aws.region", "")
	v.SetDefault("integrations.aws.endpoint", "")
	v.SetDefault("integrations.aws.ses.from_email", "")
	v.SetDefault("integrations.aws.ses.from_name", "")
	v.SetDefault("integrations.aws.ses.configuration_set", "")
	v.SetDefault("integrations.aws.ses.max_send_rate", 14.0)
	v.SetDefault("integrations.aws.sns.audit_topic_arn", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("observability.service_name", "notification-dispatcher")
	v.SetDefault("observability.jaeger_endpoint", "")
}

// applyDefaults repairs zero values that survive a config file setting
// them explicitly empty.
func applyDefaults(cfg *Config) {
	if cfg.Notifications.ThrottleMinutes < 0 {
		cfg.Notifications.ThrottleMinutes = 0
	}
	if cfg.Notifications.ProcessingWindow <= 0 {
		cfg.Notifications.ProcessingWindow = 30 * time.Second
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = "/webhook"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendPostgres
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	cfg.Notifications.BaseURL = strings.TrimRight(cfg.Notifications.BaseURL, "/")
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	pg := cfg.Database.Postgres
	switch cfg.Store.Backend {
	case StoreBackendPostgres:
		if pg.Host == "" || pg.Database == "" || pg.User == "" {
			return fmt.Errorf("database.postgres.host, database and user are required for the postgres store")
		}
	case StoreBackendElasticsearch:
		if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch store")
		}
		// the user directory always lives in postgres
		if pg.Host == "" || pg.Database == "" || pg.User == "" {
			return fmt.Errorf("database.postgres is required for the user directory")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q",
			StoreBackendPostgres, StoreBackendElasticsearch, cfg.Store.Backend)
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}

	n := cfg.Notifications
	if n.Applications.Enabled && len(n.Collections.Applications) == 0 {
		return fmt.Errorf("notifications.collections.applications must not be empty")
	}
	if n.PayStubs.Enabled {
		if len(n.Collections.PayStubs) == 0 {
			return fmt.Errorf("notifications.collections.pay_stubs must not be empty")
		}
		if n.Collections.Employees == "" {
			return fmt.Errorf("notifications.collections.employees is required for pay stub notifications")
		}
	}

	if !n.DryRun {
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required unless dry_run is set")
		}
		if cfg.Integrations.AWS.SES.FromEmail == "" {
			return fmt.Errorf("integrations.aws.ses.from_email is required unless dry_run is set")
		}
	}

	return nil
}
