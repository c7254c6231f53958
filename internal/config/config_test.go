package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "TASKPILOT_PORT", "TASKPILOT_MODE", "TASKPILOT_LOG_LEVEL", "TASKPILOT_LOG_FORMAT",
	"TASKPILOT_LLM_PROVIDER", "TASKPILOT_MODEL_NAME", "TASKPILOT_LLM_API_KEY", "TASKPILOT_LLM_BASE_URL",
	"TASKPILOT_LLM_MAX_TOKENS", "TASKPILOT_LLM_TIMEOUT", "TASKPILOT_GCP_PROJECT", "TASKPILOT_GCP_LOCATION",
	"TASKPILOT_STORAGE_BACKEND", "TASKPILOT_SQLITE_PATH", "TASKPILOT_TIMEZONE",
	"TASKPILOT_STATE_SECRET", "TASKPILOT_STATE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Chat.StateTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "taskpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
log:
  level: debug
llm:
  provider: anthropic
  api_key: from-file
  model: claude-test
  timeout: 10s
storage:
  backend: sqlite
  sqlite_path: /tmp/tasks.db
chat:
  timezone: Europe/Madrid
  state_ttl: 2h
`), 0o600))

	t.Setenv("TASKPILOT_LLM_API_KEY", "from-env")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Chat.StateTTL)
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("llm: [not, a, map]"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown mode", func(c *Config) { c.Mode = "cloud" }, true},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }, true},
		{"openai without key", func(c *Config) { c.LLM.Provider = ProviderOpenAI }, true},
		{"gemini with key", func(c *Config) { c.LLM.Provider = ProviderGemini; c.LLM.APIKey = "k" }, false},
		{"vertex without project", func(c *Config) { c.LLM.Provider = ProviderVertex }, true},
		{"vertex with project", func(c *Config) { c.LLM.Provider = ProviderVertex; c.LLM.GCPProjectID = "p" }, false},
		{"firestore without project", func(c *Config) { c.Storage.Backend = StorageFirestore }, true},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = StorageSQLite; c.Storage.SQLitePath = "" }, true},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "redis" }, true},
		{"bad timezone", func(c *Config) { c.Chat.Timezone = "Mars/Olympus" }, true},
		{"gcp without secret", func(c *Config) { c.Mode = ModeGCP }, true},
		{"gcp with secret", func(c *Config) { c.Mode = ModeGCP; c.Chat.StateSecret = "s" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
