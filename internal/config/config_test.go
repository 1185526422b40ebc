package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 15
logging:
  development: false
  level: warn
notion:
  token: secret-token
  database_id: db-123
  filter_property: Visible
  page_size: 50
  timeout_seconds: 10
refresh:
  on_start: true
upload:
  backend: gcs
  max_bytes: 1048576
  gcs:
    bucket: link-uploads
    prefix: incoming
history:
  dsn: postgres://localhost/linkboard
  table: link_history
  max_conns: 8
pubsub:
  project_id: demo
  topic: selections
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.Address() != ":9090" {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if got := cfg.Server.RequestTimeout(); got != 15*time.Second {
		t.Fatalf("expected request timeout 15s, got %v", got)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging overrides to apply: %+v", cfg.Logging)
	}
	if cfg.Notion.Token != "secret-token" || cfg.Notion.DatabaseID != "db-123" {
		t.Fatalf("expected notion credentials to load: %+v", cfg.Notion)
	}
	if cfg.Notion.FilterProperty != "Visible" || cfg.Notion.PageSize != 50 {
		t.Fatalf("expected notion overrides to apply: %+v", cfg.Notion)
	}
	if cfg.Notion.BaseURL != "https://api.notion.com" || cfg.Notion.APIVersion != "2022-06-28" {
		t.Fatalf("expected notion defaults to survive: %+v", cfg.Notion)
	}
	if cfg.Notion.RequestsPerSecond != 3 || cfg.Notion.Burst != 3 {
		t.Fatalf("expected default notion pacing, got %+v", cfg.Notion)
	}
	if got := cfg.Notion.Timeout(); got != 10*time.Second {
		t.Fatalf("expected notion timeout 10s, got %v", got)
	}
	if !cfg.Refresh.OnStart {
		t.Fatal("expected refresh.on_start to be true")
	}
	if cfg.Upload.Backend != BackendGCS || cfg.Upload.GCS.Bucket != "link-uploads" || cfg.Upload.GCS.Prefix != "incoming" {
		t.Fatalf("expected upload overrides to apply: %+v", cfg.Upload)
	}
	if cfg.Upload.MaxBytes != 1<<20 || !cfg.Upload.Enabled() {
		t.Fatalf("expected max_bytes 1MiB, got %d", cfg.Upload.MaxBytes)
	}
	if !cfg.History.Enabled() || cfg.History.Table != "link_history" || cfg.History.MaxConns != 8 {
		t.Fatalf("expected history overrides to apply: %+v", cfg.History)
	}
	if !cfg.PubSub.Enabled() || cfg.PubSub.ProjectID != "demo" {
		t.Fatalf("expected pubsub overrides to apply: %+v", cfg.PubSub)
	}
}

func TestLoadReadsEnvironmentAndAliases(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "alias-token")
	t.Setenv("DATABASE_ID", "alias-db")
	t.Setenv("LINKBOARD_SERVER_PORT", "7070")
	t.Setenv("LINKBOARD_UPLOAD_BACKEND", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Notion.Token != "alias-token" || cfg.Notion.DatabaseID != "alias-db" {
		t.Fatalf("expected bare aliases to bind: %+v", cfg.Notion)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Upload.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Upload.Backend)
	}
	if cfg.History.Enabled() || cfg.PubSub.Enabled() {
		t.Fatal("expected history and pubsub to default to disabled")
	}
}

func TestLoadWithOnlyNotionAliases(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "tok")
	t.Setenv("DATABASE_ID", "db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upload.Backend != BackendDisabled || cfg.Upload.Enabled() {
		t.Fatalf("expected uploads to be disabled without a drive folder, got %q", cfg.Upload.Backend)
	}
	if got := cfg.History.MaxConnLifetime(); got != 30*time.Minute {
		t.Fatalf("expected default conn lifetime 30m, got %v", got)
	}
}

func TestLoadSelectsDriveWhenFolderConfigured(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "tok")
	t.Setenv("DATABASE_ID", "db")
	t.Setenv("LINKBOARD_UPLOAD_DRIVE_FOLDER_ID", "folder-1")
	t.Setenv("LINKBOARD_HISTORY_MAX_CONN_LIFETIME_SECONDS", "60")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upload.Backend != BackendDrive {
		t.Fatalf("expected drive backend, got %q", cfg.Upload.Backend)
	}
	if got := cfg.History.MaxConnLifetime(); got != time.Minute {
		t.Fatalf("expected conn lifetime 1m, got %v", got)
	}
}

func TestLoadPrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "alias-token")
	t.Setenv("LINKBOARD_NOTION_TOKEN", "prefixed-token")
	t.Setenv("LINKBOARD_NOTION_DATABASE_ID", "db")
	t.Setenv("LINKBOARD_UPLOAD_BACKEND", "disabled")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Notion.Token != "prefixed-token" {
		t.Fatalf("expected prefixed token, got %q", cfg.Notion.Token)
	}
	if cfg.Upload.Enabled() {
		t.Fatal("expected upload to be disabled")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("LINKBOARD_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("LINKBOARD_DOTENV_PROBE", "")
	if err := os.Unsetenv("LINKBOARD_DOTENV_PROBE"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("LINKBOARD_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080, RequestTimeoutSeconds: 60},
		Logging: LoggingConfig{Level: "info"},
		Notion: NotionConfig{
			Token:          "t",
			DatabaseID:     "db",
			BaseURL:        "https://api.notion.com",
			FilterProperty: "Show",
			PageSize:       100,
			TimeoutSeconds: 30,
		},
		Upload:  UploadConfig{Backend: BackendMemory, MaxBytes: 1024},
		History: HistoryConfig{Table: "refreshes"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate, got %v", err)
	}

	tests := []struct {
		name string
		cfg  func(c Config) Config
		want string
	}{
		{
			name: "invalid port",
			cfg:  func(c Config) Config { c.Server.Port = 0; return c },
			want: "server",
		},
		{
			name: "missing token",
			cfg:  func(c Config) Config { c.Notion.Token = ""; return c },
			want: "notion",
		},
		{
			name: "page size above notion limit",
			cfg:  func(c Config) Config { c.Notion.PageSize = 101; return c },
			want: "notion",
		},
		{
			name: "unknown backend",
			cfg:  func(c Config) Config { c.Upload.Backend = "ftp"; return c },
			want: "upload",
		},
		{
			name: "drive without folder",
			cfg:  func(c Config) Config { c.Upload.Backend = BackendDrive; return c },
			want: "drive.folder_id",
		},
		{
			name: "gcs without bucket",
			cfg:  func(c Config) Config { c.Upload.Backend = BackendGCS; return c },
			want: "gcs.bucket",
		},
		{
			name: "local without dir",
			cfg:  func(c Config) Config { c.Upload.Backend = BackendLocal; return c },
			want: "local.base_dir",
		},
		{
			name: "bad history table",
			cfg:  func(c Config) Config { c.History.Table = "drop table"; return c },
			want: "history",
		},
		{
			name: "negative conn lifetime",
			cfg:  func(c Config) Config { c.History.MaxConnLifetimeSeconds = -1; return c },
			want: "history",
		},
		{
			name: "topic without project",
			cfg:  func(c Config) Config { c.PubSub.Topic = "selections"; return c },
			want: "pubsub",
		},
		{
			name: "negative request rate",
			cfg:  func(c Config) Config { c.Notion.RequestsPerSecond = -1; return c },
			want: "notion",
		},
		{
			name: "unknown log level",
			cfg:  func(c Config) Config { c.Logging.Level = "verbose"; return c },
			want: "logging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg(base).Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
