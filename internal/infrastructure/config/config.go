package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environments with special handling
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Import    ImportConfig
	Export    ExportConfig
	Storage   StorageConfig
	Fees      FeesConfig
	Job       JobConfig
	Telemetry TelemetryConfig
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
	Driver             string        // postgres or sqlite
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	SSLMode            string
	Path               string        // sqlite file, ":memory:" for an in-memory database
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int           // in minutes
	ConnMaxIdleTime    int           // in minutes
	// SlowQueryThreshold flags statements in the SQL log and on DB spans
	SlowQueryThreshold time.Duration
}

// RedisConfig holds Redis connection settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ImportConfig holds settings of the legacy CSV importers
type ImportConfig struct {
	Workers   int           // size of the row worker pool
	Encoding  string        // auto, utf-8 or windows-1252
	ReportDir string        // directory for row report files
	LockTTL   time.Duration // lifetime of the run lock
}

// ExportConfig holds settings of the tabular exports
type ExportConfig struct {
	Separator           string // CSV separator for generic exports
	MitgliederSeparator string // CSV separator of the sac_mitglieder export
	BOM                 bool   // prefix CSV files with a UTF-8 byte order mark
	DefaultFormat       string // csv or xlsx
}

// StorageConfig selects where export artifacts are stored
type StorageConfig struct {
	Type      string // local or s3
	LocalDir  string
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for S3 compatible stores
	AccessKey string
	SecretKey string
	PathStyle bool
}

// FeesConfig holds the annual membership fees per Beitragskategorie
type FeesConfig struct {
	Stammsektion  map[string]string
	Zusatzsektion map[string]string
}

// JobConfig holds background job runner settings
type JobConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// TelemetryConfig holds OpenTelemetry settings. Metrics and logs are
// exported to the same collector as traces.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, host:port
	SamplingRatio     float64 // 0..1
	Insecure          bool
	DBTracing         bool // trace SQL statements
	Metrics           bool
	MetricsInterval   time.Duration
	Logs              bool   // bridge zap logs to the collector
	ProfilingAddress  string // Pyroscope server; empty disables profiling
}

// Load loads configuration from config.toml in the usual locations and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SAC_ prefix (e.g., SAC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from an explicit TOML file. An empty path
// searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sac")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:             v.GetString("database.driver"),
			Host:               v.GetString("database.host"),
			Port:               v.GetInt("database.port"),
			User:               v.GetString("database.user"),
			Password:           v.GetString("database.password"),
			DBName:             v.GetString("database.dbname"),
			SSLMode:            v.GetString("database.sslmode"),
			Path:               v.GetString("database.path"),
			MaxOpenConns:       v.GetInt("database.max_open_conns"),
			MaxIdleConns:       v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:    v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:    v.GetInt("database.conn_max_idle_time"),
			SlowQueryThreshold: v.GetDuration("database.slow_query_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Import: ImportConfig{
			Workers:   v.GetInt("import.workers"),
			Encoding:  v.GetString("import.encoding"),
			ReportDir: v.GetString("import.report_dir"),
			LockTTL:   v.GetDuration("import.lock_ttl"),
		},
		Export: ExportConfig{
			Separator:           v.GetString("export.separator"),
			MitgliederSeparator: v.GetString("export.mitglieder_separator"),
			BOM:                 v.GetBool("export.bom"),
			DefaultFormat:       v.GetString("export.default_format"),
		},
		Storage: StorageConfig{
			Type:      v.GetString("storage.type"),
			LocalDir:  v.GetString("storage.local_dir"),
			Bucket:    v.GetString("storage.bucket"),
			Region:    v.GetString("storage.region"),
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			PathStyle: v.GetBool("storage.path_style"),
		},
		Fees: FeesConfig{
			Stammsektion:  v.GetStringMapString("fees.stammsektion"),
			Zusatzsektion: v.GetStringMapString("fees.zusatzsektion"),
		},
		Job: JobConfig{
			MaxAttempts: v.GetInt("job.max_attempts"),
			RetryDelay:  v.GetDuration("job.retry_delay"),
			Timeout:     v.GetDuration("job.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			Metrics:           v.GetBool("telemetry.metrics"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			Logs:              v.GetBool("telemetry.logs"),
			ProfilingAddress:  v.GetString("telemetry.profiling_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sac-membership"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = EnvDevelopment
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
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
		cfg.Database.DBName = "sac"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "sac.db"
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
	if cfg.Database.SlowQueryThreshold == 0 {
		cfg.Database.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host != "" && cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
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
	if cfg.Import.Workers == 0 {
		cfg.Import.Workers = 4
	}
	// Row processing stays single threaded in tests so reports are deterministic
	if cfg.App.Env == EnvTest {
		cfg.Import.Workers = 1
	}
	if cfg.Import.Encoding == "" {
		cfg.Import.Encoding = "auto"
	}
	if cfg.Import.ReportDir == "" {
		cfg.Import.ReportDir = "log/import"
	}
	if cfg.Import.LockTTL == 0 {
		cfg.Import.LockTTL = 2 * time.Hour
	}
	if cfg.Export.Separator == "" {
		cfg.Export.Separator = ";"
	}
	if cfg.Export.MitgliederSeparator == "" {
		cfg.Export.MitgliederSeparator = "$"
	}
	if cfg.Export.DefaultFormat == "" {
		cfg.Export.DefaultFormat = "csv"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "storage"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "eu-central-2"
	}
	if len(cfg.Fees.Stammsektion) == 0 {
		cfg.Fees.Stammsektion = map[string]string{"adult": "127.00", "family": "228.00", "youth": "76.00"}
	}
	if len(cfg.Fees.Zusatzsektion) == 0 {
		cfg.Fees.Zusatzsektion = map[string]string{"adult": "56.00", "family": "86.00", "youth": "32.00"}
	}
	if cfg.Job.MaxAttempts == 0 {
		cfg.Job.MaxAttempts = 3
	}
	if cfg.Job.RetryDelay == 0 {
		cfg.Job.RetryDelay = 5 * time.Second
	}
	if cfg.Job.Timeout == 0 {
		cfg.Job.Timeout = 30 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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
	if c.Import.Workers < 0 {
		return fmt.Errorf("import.workers cannot be negative")
	}
	switch strings.ToLower(c.Import.Encoding) {
	case "auto", "utf-8", "utf8", "windows-1252", "cp1252":
	default:
		return fmt.Errorf("import.encoding must be auto, utf-8 or windows-1252, got %q", c.Import.Encoding)
	}
	if len([]rune(c.Export.Separator)) != 1 || len([]rune(c.Export.MitgliederSeparator)) != 1 {
		return fmt.Errorf("export separators must be a single character")
	}
	switch c.Export.DefaultFormat {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("export.default_format must be csv or xlsx, got %q", c.Export.DefaultFormat)
	}
	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.type must be local or s3, got %q", c.Storage.Type)
	}
	if c.Job.MaxAttempts < 1 {
		return fmt.Errorf("job.max_attempts must be at least 1")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}

	if c.App.Env == EnvProduction {
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
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
