package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Listen)
	assert.InDelta(t, 0.92, cfg.Cache.Threshold, 1e-6)
	assert.Equal(t, 384, cfg.Cache.Dimensions)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	path := writeConfig(t, `
listen: ":9090"
db_path: "test.db"
log:
  level: debug
  format: json
cache:
  threshold: 0.85
  dimensions: 768
embedding:
  provider: openai
  url: http://localhost:11434/v1
  model: nomic-embed-text
  timeout: 10s
providers:
  - name: gemini
    url: https://generativelanguage.googleapis.com/v1beta/openai
    api_key: ${TEST_API_KEY}
router:
  routes:
    - model: tools
      targets:
        - provider: gemini
          model: gemini-2.5-flash
assistant:
  tools_model: tools
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "sk-test-123", cfg.Providers[0].APIKey, "env var expanded")
	assert.InDelta(t, 0.85, cfg.Cache.Threshold, 1e-6)
	assert.True(t, cfg.Cache.Enabled, "defaults survive partial sections")
	assert.Equal(t, 768, cfg.Cache.Dimensions)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Router.Routes, 1)
	assert.Equal(t, "gemini", cfg.Router.Routes[0].Targets[0].Provider)
	assert.Equal(t, "tools", cfg.Assistant.ToolsModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.Assistant.ChatModel)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"threshold above one", "cache:\n  threshold: 1.5\n"},
		{"negative threshold", "cache:\n  threshold: -0.1\n"},
		{"zero dimensions", "cache:\n  dimensions: 0\n"},
		{"unknown provider", "embedding:\n  provider: word2vec\n"},
		{"openai without model", "embedding:\n  provider: openai\n"},
		{"unknown log format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
