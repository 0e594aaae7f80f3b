package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MemoryInMemory, cfg.Memory)
	assert.Equal(t, TokenizerChar, cfg.Tokenizer)
	assert.Equal(t, 3, cfg.KeepRecent)
	assert.Equal(t, DriverPgx, cfg.SQLDriver)
	assert.Equal(t, SessionStoreFile, cfg.SessionStore)
	assert.False(t, cfg.CompressionEnabled())
	assert.Equal(t, cfg.Model, cfg.SummaryModel())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGENTSCOPE_TRIGGER_THRESHOLD=2000\nAGENTSCOPE_COMPRESSION_MODEL=claude-haiku-4-5\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("AGENTSCOPE_TRIGGER_THRESHOLD")
		os.Unsetenv("AGENTSCOPE_COMPRESSION_MODEL")
	})
	t.Setenv("AGENTSCOPE_KEEP_RECENT", "5")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.True(t, cfg.CompressionEnabled())
	assert.Equal(t, 2000, cfg.TriggerThreshold)
	assert.Equal(t, 5, cfg.KeepRecent)
	assert.Equal(t, "claude-haiku-4-5", cfg.SummaryModel())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown memory", env: map[string]string{"AGENTSCOPE_MEMORY": "mongo"}},
		{name: "postgres without url", env: map[string]string{"AGENTSCOPE_MEMORY": "postgres", "DATABASE_URL": ""}},
		{name: "unknown driver", env: map[string]string{"AGENTSCOPE_SQL_DRIVER": "sqlite"}},
		{name: "unknown session store", env: map[string]string{"AGENTSCOPE_SESSION_STORE": "s3"}},
		{name: "unknown tokenizer", env: map[string]string{"AGENTSCOPE_TOKENIZER": "words"}},
		{name: "negative keep", env: map[string]string{"AGENTSCOPE_KEEP_RECENT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
