package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
server:
  host: "127.0.0.1"
  port: 8081
  shutdown_timeout: 15s
  max_upload_size_mb: 50
converter:
  chat_id: 4242
  senders:
    Alice: user111111111
    Bob: user222222222
  sticker_emoji: "👍"
  indent: 2
  merge:
    enabled: false
    output: merged.json
    indent: 0
probe:
  ffprobe_path: /usr/local/bin/ffprobe
  timeout: 5s
processing:
  task_timeout: 120s
  cache_ttl: 30m
  shard_workers: 4
logging:
  level: "debug"
  format: text
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("success with full config", func(t *testing.T) {
		path := createTempConfigFile(t, fullYAML)
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8081, cfg.Server.Port)
		assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 50, cfg.Server.MaxUploadSizeMB)
		assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout)
		assert.Equal(t, "127.0.0.1:8081", cfg.Address())

		assert.Equal(t, int64(4242), cfg.Converter.ChatID)
		assert.Equal(t, map[string]string{"Alice": "user111111111", "Bob": "user222222222"}, cfg.Converter.Senders)
		assert.Equal(t, "👍", cfg.Converter.StickerEmoji)
		assert.Equal(t, 2, cfg.Converter.Indent)
		assert.False(t, cfg.Converter.Merge.Enabled)
		assert.Equal(t, "merged.json", cfg.Converter.Merge.Output)

		assert.Equal(t, "/usr/local/bin/ffprobe", cfg.Probe.FFProbePath)
		assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)

		assert.Equal(t, 120*time.Second, cfg.Processing.TaskTimeout)
		assert.Equal(t, 30*time.Minute, cfg.Processing.CacheTTL)
		assert.Equal(t, 4, cfg.Processing.ShardWorkers)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "text", cfg.Logging.Format)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		cfg := defaultConfig()
		require.NoError(t, loadFromYAML(createTempConfigFile(t, "converter:\n  chat_id: 1\n"), cfg))

		assert.Equal(t, int64(1), cfg.Converter.ChatID)
		assert.Equal(t, DefaultShardIndent, cfg.Converter.Indent)
		assert.True(t, cfg.Converter.Merge.Enabled)
		assert.Equal(t, DefaultMergeIndent, cfg.Converter.Merge.Indent)
		assert.Equal(t, DefaultStickerEmoji, cfg.Converter.StickerEmoji)
		assert.NotNil(t, cfg.Converter.Senders)
	})

	t.Run("file not found is not an error", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML("non_existent_file.yml", cfg)
		assert.NoError(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := createTempConfigFile(t, "invalid yaml: {")
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		assert.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("env overrides yaml", func(t *testing.T) {
		path := createTempConfigFile(t, fullYAML)
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("CHAT_ID", "777")
		t.Setenv("SHARD_WORKERS", "2")
		t.Setenv("CACHE_TTL", "5m")
		t.Setenv("LOG_FORMAT", "json")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, int64(777), cfg.Converter.ChatID)
		assert.Equal(t, 2, cfg.Processing.ShardWorkers)
		assert.Equal(t, 5*time.Minute, cfg.Processing.CacheTTL)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("invalid env value", func(t *testing.T) {
		t.Setenv("CHAT_ID", "not-a-number")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	validConfig := func(t *testing.T) *Config {
		cfg := defaultConfig()
		err := loadFromYAML(createTempConfigFile(t, fullYAML), cfg)
		require.NoError(t, err)
		return cfg
	}

	testCases := []struct {
		name    string
		mutator func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"defaults are valid", func(c *Config) { *c = *defaultConfig() }, false},
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, true},
		{"invalid shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, true},
		{"invalid upload size", func(c *Config) { c.Server.MaxUploadSizeMB = 0 }, true},
		{"negative upload rate", func(c *Config) { c.Server.UploadRate = -1 }, true},
		{"upload rate without burst", func(c *Config) { c.Server.UploadRate = 1; c.Server.UploadBurst = 0 }, true},
		{"upload rate with burst", func(c *Config) { c.Server.UploadRate = 0.5; c.Server.UploadBurst = 2 }, false},
		{"empty sender id", func(c *Config) { c.Converter.Senders["Carol"] = "" }, true},
		{"invalid indent", func(c *Config) { c.Converter.Indent = -1 }, true},
		{"empty merge output", func(c *Config) { c.Converter.Merge.Enabled = true; c.Converter.Merge.Output = "" }, true},
		{"invalid probe timeout", func(c *Config) { c.Probe.Timeout = -time.Second }, true},
		{"invalid task_timeout", func(c *Config) { c.Processing.TaskTimeout = -1 }, true},
		{"invalid cache_ttl", func(c *Config) { c.Processing.CacheTTL = 0 }, true},
		{"invalid shard_workers", func(c *Config) { c.Processing.ShardWorkers = 0 }, true},
		{"negative cache_max_entries", func(c *Config) { c.Processing.CacheMaxEntries = -1 }, true},
		{"unbounded cache", func(c *Config) { c.Processing.CacheMaxEntries = 0 }, false},
		{"invalid logging level", func(c *Config) { c.Logging.Level = "wrong" }, true},
		{"invalid logging format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutator(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
