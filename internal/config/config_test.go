package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesReplyEngineContract(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.LLM.Concurrency)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 70, cfg.LLM.MaxTokens)
	assert.Equal(t, 1, cfg.Upstream.MaxAttempts)
	assert.Equal(t, []string{"101584084", "3888491"}, cfg.Twitter.DemoUserIDs)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "socialrelay.yaml")
	body := `
server:
  addr: ":8080"
llm:
  model: gpt-4o-mini
  timeout: 5s
twitter:
  consumer_key: file-key
  demo_user_ids: ["42"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("RELAY_LLM__MODEL", "gpt-4o")
	t.Setenv("RELAY_SESSION__DB_PATH", "/tmp/relay.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "file-key", cfg.Twitter.ConsumerKey)
	assert.Equal(t, []string{"42"}, cfg.Twitter.DemoUserIDs)
	assert.Equal(t, "/tmp/relay.db", cfg.Session.DBPath)
	// untouched defaults survive
	assert.Equal(t, 70, cfg.LLM.MaxTokens)
}

func TestLoadMissingFileUsesDefaultsAndLegacyEnv(t *testing.T) {
	t.Setenv("CONSUMER_KEY", "ck")
	t.Setenv("CONSUMER_SECRET", "cs")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("OPEN_AI_KEY", "sk-test")
	t.Setenv("FRONTEND_URL", "http://localhost:3000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ck", cfg.Twitter.ConsumerKey)
	assert.Equal(t, "cs", cfg.Twitter.ConsumerSecret)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:3000", cfg.Server.FrontendURL)
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsMissingSecrets(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twitter.consumer_key")
	assert.Contains(t, err.Error(), "session.secret")

	cfg.Twitter.ConsumerKey, cfg.Twitter.ConsumerSecret, cfg.Session.Secret = "a", "b", "c"
	cfg.Session.Backend = "redis"
	assert.ErrorContains(t, cfg.Validate(), "session.redis_addr")

	cfg.Session.Backend = "memcache"
	assert.ErrorContains(t, cfg.Validate(), "unknown session backend")
}

func TestSaveWritesLoadableYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "socialrelay.yaml")
	cfg := Default()
	cfg.LLM.Model = "gpt-4o-mini"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.LLM.Model)
	assert.Equal(t, cfg.Session.TTL, got.Session.TTL)
	assert.Error(t, Save("", cfg))
}
