package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"CIVIXITY_CONFIG", "PORT", "LOG_LEVEL", "LOG_FORMAT", "FRONTEND_URL",
	"STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_TIMEOUT",
	"CHAT_ISSUE_WINDOW", "CHAT_HISTORY_LIMIT", "CHAT_MAX_PROMPT_CHARS",
	"NATS_URL", "NATS_TOKEN", "SPEECH_BASE_URL", "SPEECH_TIMEOUT",
	"DETECT_PYTHON", "DETECT_SCRIPT", "DETECT_UPLOAD_DIR", "DETECT_TIMEOUT",
	"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS", "OTEL_SERVICE_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func noDotenv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load("", noDotenv(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 4000 {
		t.Errorf("expected default port 4000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("expected info/json logging, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.FrontendURL != "http://localhost:5173" {
		t.Errorf("expected default frontend url, got %s", cfg.FrontendURL)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("expected postgres driver, got %s", cfg.StoreDriver)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("expected default model, got %s", cfg.Gemini.Model)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Errorf("expected 60s gemini timeout, got %s", cfg.Gemini.Timeout)
	}
	if cfg.Chat.IssueWindow != 20 || cfg.Chat.HistoryLimit != 10 || cfg.Chat.MaxPromptChars != 0 {
		t.Errorf("unexpected chat defaults %+v", cfg.Chat)
	}
	if cfg.NatsURL != "" {
		t.Errorf("expected NATS disabled by default, got %s", cfg.NatsURL)
	}
	if cfg.Speech.BaseURL != "http://localhost:5001" {
		t.Errorf("expected default speech url, got %s", cfg.Speech.BaseURL)
	}
	if cfg.Detect.Python != "python" || cfg.Detect.Script != "trial.py" || cfg.Detect.UploadDir != "uploads" {
		t.Errorf("unexpected detect defaults %+v", cfg.Detect)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != 15*time.Minute {
		t.Errorf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if cfg.OTel.Enabled() {
		t.Error("expected otel disabled by default")
	}
	if cfg.OTel.ServiceName != "civixity" {
		t.Errorf("expected service name civixity, got %s", cfg.OTel.ServiceName)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/c.db")
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("CHAT_HISTORY_LIMIT", "4")
	t.Setenv("CHAT_MAX_PROMPT_CHARS", "8000")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg, err := load("", noDotenv(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "/tmp/c.db" {
		t.Errorf("expected sqlite at /tmp/c.db, got %s %s", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.Gemini.APIKey != "key-123" || cfg.Gemini.Timeout != 5*time.Second {
		t.Errorf("unexpected gemini config %+v", cfg.Gemini)
	}
	if cfg.Chat.HistoryLimit != 4 || cfg.Chat.MaxPromptChars != 8000 {
		t.Errorf("unexpected chat config %+v", cfg.Chat)
	}
	if cfg.NatsURL != "nats://localhost:4222" {
		t.Errorf("expected nats url, got %s", cfg.NatsURL)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("expected 1m window, got %s", cfg.RateLimit.Window)
	}
	if !cfg.OTel.Enabled() {
		t.Error("expected otel enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":              "not-a-number",
		"CHAT_ISSUE_WINDOW": "twenty",
		"SPEECH_TIMEOUT":    "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := load("", noDotenv(t))
			if err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("expected error to name %s, got %v", key, err)
			}
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "civixity.yaml", `
port: 5000
store_driver: sqlite
sqlite_path: /var/lib/civixity.db
gemini:
  api_key: from-yaml
  timeout: 10s
chat:
  issue_window: 50
`)
	t.Setenv("PORT", "6000")

	cfg, err := load(path, noDotenv(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 6000 {
		t.Errorf("expected env to override yaml port, got %d", cfg.Port)
	}
	if cfg.SQLitePath != "/var/lib/civixity.db" {
		t.Errorf("expected yaml sqlite path, got %s", cfg.SQLitePath)
	}
	if cfg.Gemini.APIKey != "from-yaml" || cfg.Gemini.Timeout != 10*time.Second {
		t.Errorf("unexpected gemini config %+v", cfg.Gemini)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("expected default model to survive yaml, got %s", cfg.Gemini.Model)
	}
	if cfg.Chat.IssueWindow != 50 || cfg.Chat.HistoryLimit != 10 {
		t.Errorf("unexpected chat config %+v", cfg.Chat)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CIVIXITY_CONFIG", writeFile(t, "c.yaml", "log_format: text\n"))

	cfg, err := load("", noDotenv(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("expected text format from CIVIXITY_CONFIG, got %s", cfg.LogFormat)
	}
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	clearEnv(t)
	if _, err := load(filepath.Join(t.TempDir(), "nope.yaml"), noDotenv(t)); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_DotenvFillsUnsetVariables(t *testing.T) {
	clearEnv(t)
	dotenv := writeFile(t, ".env", "GEMINI_API_KEY=from-dotenv\nLOG_LEVEL=warn\n")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := load("", dotenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "from-dotenv" {
		t.Errorf("expected key from .env, got %s", cfg.Gemini.APIKey)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("expected process env to win over .env, got %s", cfg.LogLevel)
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		t.Error("expected .env not to leak into the process environment")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Gemini.APIKey = "k"
		cfg.DatabaseURL = "postgres://localhost/civixity"
		return &cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.Gemini.APIKey = "" }, "GEMINI_API_KEY"},
		{"postgres without url", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"sqlite without url", func(c *Config) { c.StoreDriver = DriverSQLite; c.DatabaseURL = "" }, ""},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, "STORE_DRIVER"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"zero history", func(c *Config) { c.Chat.HistoryLimit = 0 }, "CHAT_HISTORY_LIMIT"},
		{"negative budget", func(c *Config) { c.Chat.MaxPromptChars = -1 }, "CHAT_MAX_PROMPT_CHARS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error naming %s, got %v", tt.want, err)
			}
		})
	}
}
