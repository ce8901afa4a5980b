package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Storage     StorageConfig
	Reminder    ReminderConfig
	Collections CollectionsConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled           bool
	Host              string
	Port              int
	Password          string
	DB                int
	DirectoryCacheTTL time.Duration
	KeyPrefix         string
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig holds S3-compatible document storage settings
type StorageConfig struct {
	Enabled         bool
	Endpoint        string // empty for AWS, set for MinIO and other S3 compatibles
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	PresignExpiry   time.Duration
	MaxDocumentSize int64 // bytes
}

// ReminderConfig holds reminder queue settings
type ReminderConfig struct {
	Enabled bool
	Queue   string
	// MaxWorkers is the river worker concurrency for the reminder queue
	MaxWorkers int
	// DueDateLead is how long before a due date the due reminder fires
	DueDateLead time.Duration
	// InstallmentLead is how long before an installment the reminder fires
	InstallmentLead       time.Duration
	Channel               string
	DueDateTemplate       string
	InstallmentTemplate   string
	FollowUpTemplate      string
	PlanCompletedTemplate string
}

// CollectionsConfig holds domain policy settings
type CollectionsConfig struct {
	DefaultCurrency    string
	ShortfallTolerance decimal.Decimal
	RiskMediumAfter    int // days overdue
	RiskHighAfter      int
	RiskCriticalAfter  int
	UnresponsiveWindow int
	RiskSweepEnabled   bool
	RiskSweepInterval  time.Duration
	// SystemActorID is the user recorded in audit entries written by scheduled jobs
	SystemActorID uuid.UUID
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool   // Whether to enable OpenTelemetry
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	SamplingRatio     float64 // 0.0 to 1.0
	ExportInterval    time.Duration
	LogsEnabled       bool // Bridge zap records to the OTLP logs pipeline
	DBTracing         bool // Register otelgorm on the database handle
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with COLLECTIONS_ prefix (e.g., COLLECTIONS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("COLLECTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	tolerance := decimal.Zero
	if raw := v.GetString("collections.shortfall_tolerance"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("collections.shortfall_tolerance: %w", err)
		}
		tolerance = d
	}
	systemActor := uuid.Nil
	if raw := v.GetString("collections.system_actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("collections.system_actor_id: %w", err)
		}
		systemActor = id
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:           v.GetBool("redis.enabled"),
			Host:              v.GetString("redis.host"),
			Port:              v.GetInt("redis.port"),
			Password:          v.GetString("redis.password"),
			DB:                v.GetInt("redis.db"),
			DirectoryCacheTTL: v.GetDuration("redis.directory_cache_ttl"),
			KeyPrefix:         v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			KeyPrefix:       v.GetString("storage.key_prefix"),
			PresignExpiry:   v.GetDuration("storage.presign_expiry"),
			MaxDocumentSize: v.GetInt64("storage.max_document_size"),
		},
		Reminder: ReminderConfig{
			Enabled:               v.GetBool("reminder.enabled"),
			Queue:                 v.GetString("reminder.queue"),
			MaxWorkers:            v.GetInt("reminder.max_workers"),
			DueDateLead:           v.GetDuration("reminder.due_date_lead"),
			InstallmentLead:       v.GetDuration("reminder.installment_lead"),
			Channel:               v.GetString("reminder.channel"),
			DueDateTemplate:       v.GetString("reminder.due_date_template"),
			InstallmentTemplate:   v.GetString("reminder.installment_template"),
			FollowUpTemplate:      v.GetString("reminder.follow_up_template"),
			PlanCompletedTemplate: v.GetString("reminder.plan_completed_template"),
		},
		Collections: CollectionsConfig{
			DefaultCurrency:    v.GetString("collections.default_currency"),
			ShortfallTolerance: tolerance,
			RiskMediumAfter:    v.GetInt("collections.risk_medium_after"),
			RiskHighAfter:      v.GetInt("collections.risk_high_after"),
			RiskCriticalAfter:  v.GetInt("collections.risk_critical_after"),
			UnresponsiveWindow: v.GetInt("collections.unresponsive_window"),
			RiskSweepEnabled:   v.GetBool("collections.risk_sweep_enabled"),
			RiskSweepInterval:  v.GetDuration("collections.risk_sweep_interval"),
			SystemActorID:      systemActor,
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg, v.IsSet("collections.shortfall_tolerance"), v.IsSet("telemetry.sampling_ratio"))

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config, toleranceSet, samplingSet bool) {
	if cfg.App.Name == "" {
		cfg.App.Name = "collections-worker"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "collections"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.DirectoryCacheTTL == 0 {
		cfg.Redis.DirectoryCacheTTL = 10 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "collections:directory:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "collections-legal-documents"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "tasks"
	}
	if cfg.Storage.PresignExpiry == 0 {
		cfg.Storage.PresignExpiry = 15 * time.Minute
	}
	if cfg.Storage.MaxDocumentSize == 0 {
		cfg.Storage.MaxDocumentSize = 25 << 20
	}
	if cfg.Reminder.Queue == "" {
		cfg.Reminder.Queue = "collections_reminders"
	}
	if cfg.Reminder.MaxWorkers == 0 {
		cfg.Reminder.MaxWorkers = 10
	}
	if cfg.Reminder.DueDateLead == 0 {
		cfg.Reminder.DueDateLead = 72 * time.Hour
	}
	if cfg.Reminder.InstallmentLead == 0 {
		cfg.Reminder.InstallmentLead = 48 * time.Hour
	}
	if cfg.Reminder.Channel == "" {
		cfg.Reminder.Channel = "email"
	}
	if cfg.Reminder.DueDateTemplate == "" {
		cfg.Reminder.DueDateTemplate = "collections/due-date"
	}
	if cfg.Reminder.InstallmentTemplate == "" {
		cfg.Reminder.InstallmentTemplate = "collections/installment-due"
	}
	if cfg.Reminder.FollowUpTemplate == "" {
		cfg.Reminder.FollowUpTemplate = "collections/follow-up"
	}
	if cfg.Reminder.PlanCompletedTemplate == "" {
		cfg.Reminder.PlanCompletedTemplate = "collections/plan-completed"
	}
	if cfg.Collections.DefaultCurrency == "" {
		cfg.Collections.DefaultCurrency = "USD"
	}
	if !toleranceSet {
		cfg.Collections.ShortfallTolerance = decimal.RequireFromString("1.00")
	}
	if cfg.Collections.RiskMediumAfter == 0 {
		cfg.Collections.RiskMediumAfter = 1
	}
	if cfg.Collections.RiskHighAfter == 0 {
		cfg.Collections.RiskHighAfter = 15
	}
	if cfg.Collections.RiskCriticalAfter == 0 {
		cfg.Collections.RiskCriticalAfter = 46
	}
	if cfg.Collections.UnresponsiveWindow == 0 {
		cfg.Collections.UnresponsiveWindow = 3
	}
	if cfg.Collections.RiskSweepInterval == 0 {
		cfg.Collections.RiskSweepInterval = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "collections-worker"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
	if !samplingSet {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Collections.ShortfallTolerance.IsNegative() {
		return fmt.Errorf("collections.shortfall_tolerance cannot be negative")
	}
	if !(c.Collections.RiskMediumAfter < c.Collections.RiskHighAfter &&
		c.Collections.RiskHighAfter < c.Collections.RiskCriticalAfter) {
		return fmt.Errorf("collections risk thresholds must increase: medium %d, high %d, critical %d",
			c.Collections.RiskMediumAfter, c.Collections.RiskHighAfter, c.Collections.RiskCriticalAfter)
	}
	if c.Collections.RiskSweepEnabled && c.Collections.SystemActorID == uuid.Nil {
		return fmt.Errorf("collections.system_actor_id is required when the risk sweep is enabled")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	if c.Reminder.MaxWorkers < 1 {
		return fmt.Errorf("reminder.max_workers must be positive")
	}

	if c.Storage.Enabled {
		if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
			return fmt.Errorf("storage.access_key_id and storage.secret_access_key are required when storage is enabled")
		}
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
