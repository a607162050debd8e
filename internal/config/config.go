package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	FrontendURL string `yaml:"frontend_url"`

	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	Gemini GeminiConfig `yaml:"gemini"`
	Chat   ChatConfig   `yaml:"chat"`

	NatsURL   string `yaml:"nats_url"`
	NatsToken string `yaml:"nats_token"`

	Speech    SpeechConfig    `yaml:"speech"`
	Detect    DetectConfig    `yaml:"detect"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	OTel      OTelConfig      `yaml:"otel"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ChatConfig sizes the context fed into each prompt. MaxPromptChars of 0
// disables the budget.
type ChatConfig struct {
	IssueWindow    int `yaml:"issue_window"`
	HistoryLimit   int `yaml:"history_limit"`
	MaxPromptChars int `yaml:"max_prompt_chars"`
}

type SpeechConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DetectConfig struct {
	Python    string        `yaml:"python"`
	Script    string        `yaml:"script"`
	UploadDir string        `yaml:"upload_dir"`
	Timeout   time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// OTelConfig enables OTLP export when Endpoint is set.
type OTelConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Headers     string `yaml:"headers"`
	ServiceName string `yaml:"service_name"`
}

func (o OTelConfig) Enabled() bool { return o.Endpoint != "" }

// Load builds the config from defaults, an optional YAML file, and the
// environment. Values in ./.env fill in variables the process environment
// leaves unset. path falls back to CIVIXITY_CONFIG.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, dotenvPath string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CIVIXITY_CONFIG")
	}

	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
	}
	if dotenv == nil {
		dotenv = map[string]string{}
	}
	if path == "" {
		path = dotenv["CIVIXITY_CONFIG"]
	}

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	env := environment(dotenv)
	if err := env.apply(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Port:        4000,
		LogLevel:    "info",
		LogFormat:   "json",
		FrontendURL: "http://localhost:5173",
		StoreDriver: DriverPostgres,
		SQLitePath:  "data/civixity.db",
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
			Timeout: 60 * time.Second,
		},
		Chat: ChatConfig{
			IssueWindow:  20,
			HistoryLimit: 10,
		},
		Speech: SpeechConfig{
			BaseURL: "http://localhost:5001",
			Timeout: 30 * time.Second,
		},
		Detect: DetectConfig{
			Python:    "python",
			Script:    "trial.py",
			UploadDir: "uploads",
			Timeout:   60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   15 * time.Minute,
		},
		OTel: OTelConfig{ServiceName: "civixity"},
	}
}

// environment resolves a key from the process first, then from .env.
type environment map[string]string

func (e environment) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return e[key]
}

func (e environment) apply(cfg *Config) error {
	var err error
	cfg.LogLevel = e.envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = e.envStr("LOG_FORMAT", cfg.LogFormat)
	cfg.FrontendURL = e.envStr("FRONTEND_URL", cfg.FrontendURL)
	cfg.StoreDriver = strings.ToLower(e.envStr("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = e.envStr("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = e.envStr("SQLITE_PATH", cfg.SQLitePath)

	cfg.Gemini.APIKey = e.envStr("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = e.envStr("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = e.envStr("GEMINI_BASE_URL", cfg.Gemini.BaseURL)

	cfg.NatsURL = e.envStr("NATS_URL", cfg.NatsURL)
	cfg.NatsToken = e.envStr("NATS_TOKEN", cfg.NatsToken)

	cfg.Speech.BaseURL = e.envStr("SPEECH_BASE_URL", cfg.Speech.BaseURL)

	cfg.Detect.Python = e.envStr("DETECT_PYTHON", cfg.Detect.Python)
	cfg.Detect.Script = e.envStr("DETECT_SCRIPT", cfg.Detect.Script)
	cfg.Detect.UploadDir = e.envStr("DETECT_UPLOAD_DIR", cfg.Detect.UploadDir)

	cfg.OTel.Endpoint = e.envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Headers = e.envStr("OTEL_EXPORTER_OTLP_HEADERS", cfg.OTel.Headers)
	cfg.OTel.ServiceName = e.envStr("OTEL_SERVICE_NAME", cfg.OTel.ServiceName)

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Port},
		{"CHAT_ISSUE_WINDOW", &cfg.Chat.IssueWindow},
		{"CHAT_HISTORY_LIMIT", &cfg.Chat.HistoryLimit},
		{"CHAT_MAX_PROMPT_CHARS", &cfg.Chat.MaxPromptChars},
		{"RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests},
	}
	for _, f := range ints {
		if *f.dst, err = e.envInt(f.key, *f.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"GEMINI_TIMEOUT", &cfg.Gemini.Timeout},
		{"SPEECH_TIMEOUT", &cfg.Speech.Timeout},
		{"DETECT_TIMEOUT", &cfg.Detect.Timeout},
		{"RATE_LIMIT_WINDOW", &cfg.RateLimit.Window},
	}
	for _, f := range durations {
		if *f.dst, err = e.envDuration(f.key, *f.dst); err != nil {
			return err
		}
	}
	return nil
}

func (e environment) envStr(key, fallback string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return fallback
}

func (e environment) envInt(key string, fallback int) (int, error) {
	v := e.get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func (e environment) envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := e.get(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

// Validate reports the first setting the service cannot start without.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Chat.IssueWindow <= 0 {
		return fmt.Errorf("CHAT_ISSUE_WINDOW must be positive, got %d", c.Chat.IssueWindow)
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be positive, got %d", c.Chat.HistoryLimit)
	}
	if c.Chat.MaxPromptChars < 0 {
		return fmt.Errorf("CHAT_MAX_PROMPT_CHARS must not be negative, got %d", c.Chat.MaxPromptChars)
	}
	return nil
}
