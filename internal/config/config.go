package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	S3      S3Config
	Storage StorageConfig
	Log     LogConfig
	Schema  SchemaConfig
	Decode  DecodeConfig
	Merge   MergeConfig
	Ingest  IngestConfig
	Notify  NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Environment   string        `mapstructure:"environment"`
	MaxUploadSize int64         `mapstructure:"max_upload_mb"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
}

// DBConfig holds PostgreSQL connection settings. With Enabled false the ingest
// pipeline runs without a run ledger.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	RawPrefix    string `mapstructure:"raw_prefix"`
	OutputPrefix string `mapstructure:"output_prefix"`
}

// StorageConfig selects the object storage backend.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // "local" or "s3"
	LocalRoot string `mapstructure:"local_root"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchemaConfig points at layout descriptors. An empty Dir uses the embedded layouts.
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// DecodeConfig tunes the fixed-width decoder.
type DecodeConfig struct {
	MaxReplacementRatio float64 `mapstructure:"max_replacement_ratio"`
	ForceLegacyCharset  bool    `mapstructure:"force_legacy_charset"`
	MaxRecords          int     `mapstructure:"max_records"`
}

// MergeConfig holds the duplicate-reconciliation thresholds.
type MergeConfig struct {
	ConflictThresholdFeet float64 `mapstructure:"conflict_threshold_feet"`
	UpperMajority         float64 `mapstructure:"upper_majority"`
	MixedMajority         float64 `mapstructure:"mixed_majority"`
	Concurrency           int     `mapstructure:"concurrency"`
}

// IngestConfig holds batch ingest settings.
type IngestConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	FirstYear   int `mapstructure:"first_year"`
	LastYear    int `mapstructure:"last_year"`
}

// NotifyConfig holds batch report delivery settings.
type NotifyConfig struct {
	Provider    string   `mapstructure:"provider"` // "log" or "ses"
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// Years returns the configured year range, inclusive.
func (i *IngestConfig) Years() []int {
	var years []int
	for y := i.FirstYear; y <= i.LastYear; y++ {
		years = append(years, y)
	}
	return years
}

// Load reads configuration from environment variables with the NJCRASHES_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NJCRASHES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 256)
	v.SetDefault("server.cors_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// DB defaults
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "njcrashes")
	v.SetDefault("db.password", "njcrashes_secret")
	v.SetDefault("db.name", "njcrashes")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "nj-crashes")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.raw_prefix", "njdot/data")
	v.SetDefault("s3.output_prefix", "njdot/tables")

	// Storage defaults
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_root", "data")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Schema defaults
	v.SetDefault("schema.dir", "")

	// Decode defaults
	v.SetDefault("decode.max_replacement_ratio", 0.0)
	v.SetDefault("decode.force_legacy_charset", false)
	v.SetDefault("decode.max_records", 0)

	// Merge defaults
	v.SetDefault("merge.conflict_threshold_feet", 500.0)
	v.SetDefault("merge.upper_majority", 0.5)
	v.SetDefault("merge.mixed_majority", 0.5)
	v.SetDefault("merge.concurrency", 8)

	// Ingest defaults
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.first_year", 2001)
	v.SetDefault("ingest.last_year", 2022)

	// Notify defaults
	v.SetDefault("notify.provider", "log")
	v.SetDefault("notify.region", "us-east-1")
	v.SetDefault("notify.from_address", "noreply@njcrashes.local")
	v.SetDefault("notify.from_name", "NJ Crashes")
	v.SetDefault("notify.recipients", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "NJCRASHES_SERVER_PORT",
		"server.read_timeout":           "NJCRASHES_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "NJCRASHES_SERVER_WRITE_TIMEOUT",
		"server.environment":            "NJCRASHES_SERVER_ENVIRONMENT",
		"server.max_upload_mb":          "NJCRASHES_SERVER_MAX_UPLOAD_MB",
		"server.cors_origins":           "NJCRASHES_SERVER_CORS_ORIGINS",
		"db.enabled":                    "NJCRASHES_DB_ENABLED",
		"db.host":                       "NJCRASHES_DB_HOST",
		"db.port":                       "NJCRASHES_DB_PORT",
		"db.user":                       "NJCRASHES_DB_USER",
		"db.password":                   "NJCRASHES_DB_PASSWORD",
		"db.name":                       "NJCRASHES_DB_NAME",
		"db.sslmode":                    "NJCRASHES_DB_SSLMODE",
		"db.max_open":                   "NJCRASHES_DB_MAX_OPEN",
		"db.max_idle":                   "NJCRASHES_DB_MAX_IDLE",
		"s3.region":                     "NJCRASHES_S3_REGION",
		"s3.bucket":                     "NJCRASHES_S3_BUCKET",
		"s3.endpoint":                   "NJCRASHES_S3_ENDPOINT",
		"s3.access_key":                 "NJCRASHES_S3_ACCESS_KEY",
		"s3.secret_key":                 "NJCRASHES_S3_SECRET_KEY",
		"s3.raw_prefix":                 "NJCRASHES_S3_RAW_PREFIX",
		"s3.output_prefix":              "NJCRASHES_S3_OUTPUT_PREFIX",
		"storage.provider":              "NJCRASHES_STORAGE_PROVIDER",
		"storage.local_root":            "NJCRASHES_STORAGE_LOCAL_ROOT",
		"log.level":                     "NJCRASHES_LOG_LEVEL",
		"log.format":                    "NJCRASHES_LOG_FORMAT",
		"schema.dir":                    "NJCRASHES_SCHEMA_DIR",
		"decode.max_replacement_ratio":  "NJCRASHES_DECODE_MAX_REPLACEMENT_RATIO",
		"decode.force_legacy_charset":   "NJCRASHES_DECODE_FORCE_LEGACY_CHARSET",
		"decode.max_records":            "NJCRASHES_DECODE_MAX_RECORDS",
		"merge.conflict_threshold_feet": "NJCRASHES_MERGE_CONFLICT_THRESHOLD_FEET",
		"merge.upper_majority":          "NJCRASHES_MERGE_UPPER_MAJORITY",
		"merge.mixed_majority":          "NJCRASHES_MERGE_MIXED_MAJORITY",
		"merge.concurrency":             "NJCRASHES_MERGE_CONCURRENCY",
		"ingest.concurrency":            "NJCRASHES_INGEST_CONCURRENCY",
		"ingest.first_year":             "NJCRASHES_INGEST_FIRST_YEAR",
		"ingest.last_year":              "NJCRASHES_INGEST_LAST_YEAR",
		"notify.provider":               "NJCRASHES_NOTIFY_PROVIDER",
		"notify.region":                 "NJCRASHES_NOTIFY_REGION",
		"notify.from_address":           "NJCRASHES_NOTIFY_FROM_ADDRESS",
		"notify.from_name":              "NJCRASHES_NOTIFY_FROM_NAME",
		"notify.recipients":             "NJCRASHES_NOTIFY_RECIPIENTS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// PaaS hosts set a PORT env var. Use it if NJCRASHES_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("NJCRASHES_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:          serverPort,
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		Environment:   v.GetString("server.environment"),
		MaxUploadSize: v.GetInt64("server.max_upload_mb") << 20,
		CORSOrigins:   splitList(v.GetString("server.cors_origins")),
	}
	cfg.DB = DBConfig{
		Enabled:  v.GetBool("db.enabled"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:       v.GetString("s3.region"),
		Bucket:       v.GetString("s3.bucket"),
		Endpoint:     v.GetString("s3.endpoint"),
		AccessKey:    v.GetString("s3.access_key"),
		SecretKey:    v.GetString("s3.secret_key"),
		RawPrefix:    strings.Trim(v.GetString("s3.raw_prefix"), "/"),
		OutputPrefix: strings.Trim(v.GetString("s3.output_prefix"), "/"),
	}
	cfg.Storage = StorageConfig{
		Provider:  strings.ToLower(v.GetString("storage.provider")),
		LocalRoot: v.GetString("storage.local_root"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Schema = SchemaConfig{
		Dir: v.GetString("schema.dir"),
	}
	cfg.Decode = DecodeConfig{
		MaxReplacementRatio: v.GetFloat64("decode.max_replacement_ratio"),
		ForceLegacyCharset:  v.GetBool("decode.force_legacy_charset"),
		MaxRecords:          v.GetInt("decode.max_records"),
	}
	cfg.Merge = MergeConfig{
		ConflictThresholdFeet: v.GetFloat64("merge.conflict_threshold_feet"),
		UpperMajority:         v.GetFloat64("merge.upper_majority"),
		MixedMajority:         v.GetFloat64("merge.mixed_majority"),
		Concurrency:           v.GetInt("merge.concurrency"),
	}
	cfg.Ingest = IngestConfig{
		Concurrency: v.GetInt("ingest.concurrency"),
		FirstYear:   v.GetInt("ingest.first_year"),
		LastYear:    v.GetInt("ingest.last_year"),
	}
	cfg.Notify = NotifyConfig{
		Provider:    strings.ToLower(v.GetString("notify.provider")),
		Region:      v.GetString("notify.region"),
		FromAddress: v.GetString("notify.from_address"),
		FromName:    v.GetString("notify.from_name"),
		Recipients:  splitList(v.GetString("notify.recipients")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Provider {
	case "local", "s3":
	default:
		return fmt.Errorf("config: unknown storage provider %q", c.Storage.Provider)
	}
	switch c.Notify.Provider {
	case "log":
	case "ses":
		if len(c.Notify.Recipients) == 0 {
			return fmt.Errorf("config: notify.recipients is required for the ses provider")
		}
	default:
		return fmt.Errorf("config: unknown notify provider %q", c.Notify.Provider)
	}
	if c.Merge.UpperMajority <= 0 || c.Merge.UpperMajority >= 1 {
		return fmt.Errorf("config: merge.upper_majority must be in (0,1), got %v", c.Merge.UpperMajority)
	}
	if c.Merge.MixedMajority <= 0 || c.Merge.MixedMajority >= 1 {
		return fmt.Errorf("config: merge.mixed_majority must be in (0,1), got %v", c.Merge.MixedMajority)
	}
	if c.Merge.ConflictThresholdFeet <= 0 {
		return fmt.Errorf("config: merge.conflict_threshold_feet must be positive, got %v", c.Merge.ConflictThresholdFeet)
	}
	if c.Ingest.FirstYear > c.Ingest.LastYear {
		return fmt.Errorf("config: ingest.first_year %d is after last_year %d", c.Ingest.FirstYear, c.Ingest.LastYear)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
