// Package config loads and validates linkboard configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. LINKBOARD_SERVER_PORT.
const EnvPrefix = "LINKBOARD"

// Upload backends. BackendAuto resolves to Drive when a folder is
// configured and to disabled otherwise.
const (
	BackendAuto     = "auto"
	BackendDrive    = "drive"
	BackendGCS      = "gcs"
	BackendLocal    = "local"
	BackendMemory   = "memory"
	BackendDisabled = "disabled"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Upload  UploadConfig  `mapstructure:"upload"`
	History HistoryConfig `mapstructure:"history"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// Address returns the listen address for the HTTP server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RequestTimeout converts the per-request budget to a duration.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate validates the server configuration.
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.RequestTimeoutSeconds, validation.Min(1)),
	)
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Validate validates the logging configuration.
func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
	)
}

// NotionConfig points the page fetcher at one database.
type NotionConfig struct {
	Token          string `mapstructure:"token"`
	DatabaseID     string `mapstructure:"database_id"`
	BaseURL        string `mapstructure:"base_url"`
	APIVersion     string `mapstructure:"api_version"`
	FilterProperty string `mapstructure:"filter_property"`
	PageSize       int    `mapstructure:"page_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// RequestsPerSecond paces page queries; Notion allows about three per
	// second per integration. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Timeout converts the HTTP client timeout to a duration.
func (c NotionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the Notion configuration.
func (c NotionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.DatabaseID, validation.Required),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.FilterProperty, validation.Required),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// RefreshConfig controls refreshes outside of GET /refresh.
type RefreshConfig struct {
	OnStart bool `mapstructure:"on_start"`
}

// UploadConfig selects and configures the upload backend.
type UploadConfig struct {
	Backend  string      `mapstructure:"backend"`
	MaxBytes int64       `mapstructure:"max_bytes"`
	Drive    DriveConfig `mapstructure:"drive"`
	GCS      GCSConfig   `mapstructure:"gcs"`
	Local    LocalConfig `mapstructure:"local"`
}

// DriveConfig holds the target folder and service-account credentials.
type DriveConfig struct {
	FolderID        string `mapstructure:"folder_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// GCSConfig holds the bucket uploads are written to.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// LocalConfig holds the directory uploads are written to.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// Enabled reports whether POST /upload should be mounted.
func (c UploadConfig) Enabled() bool {
	return c.Backend != BackendDisabled
}

func (c UploadConfig) resolveBackend() string {
	if c.Backend != BackendAuto {
		return c.Backend
	}
	if c.Drive.FolderID != "" {
		return BackendDrive
	}
	return BackendDisabled
}

// Validate validates the upload configuration.
func (c UploadConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendDrive, BackendGCS, BackendLocal, BackendMemory, BackendDisabled)),
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	); err != nil {
		return err
	}
	switch c.Backend {
	case BackendDrive:
		if c.Drive.FolderID == "" {
			return fmt.Errorf("drive.folder_id is required for the %q backend", BackendDrive)
		}
	case BackendGCS:
		if c.GCS.Bucket == "" {
			return fmt.Errorf("gcs.bucket is required for the %q backend", BackendGCS)
		}
	case BackendLocal:
		if c.Local.BaseDir == "" {
			return fmt.Errorf("local.base_dir is required for the %q backend", BackendLocal)
		}
	}
	return nil
}

// HistoryConfig enables Postgres refresh history when DSN is set.
type HistoryConfig struct {
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
}

// MaxConnLifetime converts the pool connection lifetime to a duration. Zero
// keeps the pgx default.
func (c HistoryConfig) MaxConnLifetime() time.Duration {
	return time.Duration(c.MaxConnLifetimeSeconds) * time.Second
}

// Enabled reports whether refresh history is persisted.
func (c HistoryConfig) Enabled() bool {
	return c.DSN != ""
}

// Validate validates the history configuration.
func (c HistoryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Table, validation.Required, validation.Match(tableName)),
		validation.Field(&c.MaxConns, validation.Min(int32(0))),
		validation.Field(&c.MaxConnLifetimeSeconds, validation.Min(0)),
	)
}

// PubSubConfig enables selection events when Topic is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether selection events are published to Pub/Sub.
func (c PubSubConfig) Enabled() bool {
	return c.Topic != ""
}

// Validate validates the Pub/Sub configuration.
func (c PubSubConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProjectID, validation.When(c.Topic != "", validation.Required)),
	)
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Upload.Backend = cfg.Upload.resolveBackend()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindAliases accepts the bare variable names used by existing deployments.
func bindAliases(v *viper.Viper) error {
	aliases := map[string]string{
		"notion.token":       "NOTION_TOKEN",
		"notion.database_id": "DATABASE_ID",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.base_url", "https://api.notion.com")
	v.SetDefault("notion.api_version", "2022-06-28")
	v.SetDefault("notion.filter_property", "Show")
	v.SetDefault("notion.page_size", 100)
	v.SetDefault("notion.timeout_seconds", 30)
	v.SetDefault("notion.requests_per_second", 3.0)
	v.SetDefault("notion.burst", 3)
	v.SetDefault("refresh.on_start", false)
	v.SetDefault("upload.backend", BackendAuto)
	v.SetDefault("upload.max_bytes", 32<<20)
	v.SetDefault("upload.drive.folder_id", "")
	v.SetDefault("upload.drive.credentials_file", "")
	v.SetDefault("upload.drive.credentials_json", "")
	v.SetDefault("upload.gcs.bucket", "")
	v.SetDefault("upload.gcs.prefix", "uploads")
	v.SetDefault("upload.local.base_dir", "")
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.table", "refreshes")
	v.SetDefault("history.max_conns", 4)
	v.SetDefault("history.max_conn_lifetime_seconds", 1800)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"server", c.Server},
		{"logging", c.Logging},
		{"notion", c.Notion},
		{"upload", c.Upload},
		{"history", c.History},
		{"pubsub", c.PubSub},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
