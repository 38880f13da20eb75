//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ECHOBOOK_PROVIDER", "resemble")
	t.Setenv("RESEMBLE_API", "key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)

	assert.True(t, cfg.Runtime.Dev)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, int64(100), cfg.Server.MaxUploadMB)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, 4, cfg.Worker.Size)
	assert.Equal(t, 64, cfg.Worker.QueueSize)
	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.Provider.RequestTimeout)
	assert.Equal(t, 0, cfg.Provider.MaxRetries)
	assert.Equal(t, "https://app.resemble.ai/api/v2", cfg.Provider.Resemble.BaseURL)
	assert.Equal(t, 22050, cfg.Provider.Resemble.SampleRate)
	assert.Equal(t, "PCM_16", cfg.Provider.Resemble.Precision)
	assert.Equal(t, 3, cfg.Voice.UploadTakes)
	assert.Equal(t, 1, cfg.Voice.Channels)
	assert.Equal(t, "wav", cfg.Audio.OutputFormat)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "jobs", cfg.Storage.JobsDir)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  rate_limit: 5
provider:
  name: OpenAI
  openai:
    api_key: from-file
    model: tts-1
voice:
  upload_takes: 1
audio:
  output_format: MP3
`)
	t.Setenv("ECHOBOOK_PORT", "9100")
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.RateLimit)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "from-env", cfg.Provider.OpenAI.APIKey)
	assert.Equal(t, "tts-1", cfg.Provider.OpenAI.Model)
	assert.Equal(t, 1, cfg.Voice.UploadTakes)
	assert.Equal(t, "mp3", cfg.Audio.OutputFormat)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server: [oops"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Provider.Name = "resemble"
		c.Provider.Resemble.APIKey = "k"
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Provider.Name = "polly" }, "unknown provider.name"},
		{"missing resemble key", func(c *Config) { c.Provider.Resemble.APIKey = "" }, "RESEMBLE_API"},
		{"missing gemini key", func(c *Config) { c.Provider.Name = "gemini" }, "GEMINI_API_KEY"},
		{"bad format", func(c *Config) { c.Audio.OutputFormat = "ogg" }, "output_format"},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3"; c.S3.Endpoint = "localhost:9000" }, "s3.bucket"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
