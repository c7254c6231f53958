package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// LLM provider names.
const (
	ProviderMock      = "mock"
	ProviderVertex    = "vertex"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Storage backend names.
const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
)

type Config struct {
	Mode Mode   `yaml:"mode"`
	Port string `yaml:"port"`

	Log     LogConfig     `yaml:"log"`
	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
	Chat    ChatConfig    `yaml:"chat"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

type LLMConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`

	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"` // "memory", "sqlite" or "firestore"
	SQLitePath   string `yaml:"sqlite_path"`
	GCPProjectID string `yaml:"gcp_project"`
}

type ChatConfig struct {
	Timezone    string        `yaml:"timezone"`
	StateSecret string        `yaml:"state_secret"`
	StateTTL    time.Duration `yaml:"state_ttl"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Default returns the local development configuration.
func Default() *Config {
	return &Config{
		Mode: ModeLocal,
		Port: "8080",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Provider:    ProviderMock,
			MaxTokens:   1024,
			Timeout:     30 * time.Second,
			GCPLocation: "us-central1",
		},
		Storage: StorageConfig{
			Backend:    StorageMemory,
			SQLitePath: "taskpilot.db",
		},
		Chat: ChatConfig{
			Timezone: "UTC",
			StateTTL: 24 * time.Hour,
		},
	}
}

// Load builds the config from defaults, then the YAML file at path (if
// non-empty), then TASKPILOT_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Mode = Mode(getEnv("TASKPILOT_MODE", string(cfg.Mode)))
	cfg.Port = getEnv("PORT", getEnv("TASKPILOT_PORT", cfg.Port))

	cfg.Log.Level = getEnv("TASKPILOT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("TASKPILOT_LOG_FORMAT", cfg.Log.Format)

	cfg.LLM.Provider = getEnv("TASKPILOT_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("TASKPILOT_MODEL_NAME", cfg.LLM.Model)
	cfg.LLM.APIKey = getEnv("TASKPILOT_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.BaseURL = getEnv("TASKPILOT_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.MaxTokens = getIntEnv("TASKPILOT_LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.Timeout = getDurationEnv("TASKPILOT_LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.GCPProjectID = getEnv("TASKPILOT_GCP_PROJECT", cfg.LLM.GCPProjectID)
	cfg.LLM.GCPLocation = getEnv("TASKPILOT_GCP_LOCATION", cfg.LLM.GCPLocation)

	cfg.Storage.Backend = getEnv("TASKPILOT_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.SQLitePath = getEnv("TASKPILOT_SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.GCPProjectID = getEnv("TASKPILOT_GCP_PROJECT", cfg.Storage.GCPProjectID)

	cfg.Chat.Timezone = getEnv("TASKPILOT_TIMEZONE", cfg.Chat.Timezone)
	cfg.Chat.StateSecret = getEnv("TASKPILOT_STATE_SECRET", cfg.Chat.StateSecret)
	cfg.Chat.StateTTL = getDurationEnv("TASKPILOT_STATE_TTL", cfg.Chat.StateTTL)
}

// Validate checks the combinations each backend needs.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeGCP:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderVertex:
		if c.LLM.GCPProjectID == "" || c.LLM.GCPLocation == "" {
			return fmt.Errorf("TASKPILOT_GCP_PROJECT and TASKPILOT_GCP_LOCATION must be set for the vertex provider")
		}
	case ProviderGemini, ProviderAnthropic, ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("TASKPILOT_LLM_API_KEY must be set for the %s provider", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite storage needs a path")
		}
	case StorageFirestore:
		if c.Storage.GCPProjectID == "" {
			return fmt.Errorf("TASKPILOT_GCP_PROJECT is required for Firestore storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := time.LoadLocation(c.Chat.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Chat.Timezone, err)
	}

	// Minimal validation in GCP mode
	if c.Mode == ModeGCP && c.Chat.StateSecret == "" {
		return fmt.Errorf("TASKPILOT_STATE_SECRET must be set in gcp mode")
	}
	return nil
}

// Location returns the configured timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Chat.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
