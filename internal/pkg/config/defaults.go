package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 200
	DefaultCleanupInterval = 1 * time.Hour
	DefaultUploadBurst     = 4

	// Processing defaults
	DefaultTaskTimeout  = 600 * time.Second
	DefaultCacheTTL        = 60 * time.Minute
	DefaultCacheMaxEntries = 32
	DefaultShardWorkers    = 1

	// Converter defaults
	DefaultStickerEmoji = "❤️"
	DefaultShardIndent  = 4
	DefaultMergeIndent  = 2
	DefaultMergeOutput  = "result.json"

	// Probe defaults
	DefaultProbeTimeout = 30 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
)

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxUploadSizeMB: DefaultMaxUploadSizeMB,
			CleanupInterval: DefaultCleanupInterval,
			CORSOrigins:     []string{"*"},
			UploadBurst:     DefaultUploadBurst,
		},
		Converter: Converter{
			Senders:      map[string]string{},
			StickerEmoji: DefaultStickerEmoji,
			Indent:       DefaultShardIndent,
			Merge: Merge{
				Enabled: true,
				Output:  DefaultMergeOutput,
				Indent:  DefaultMergeIndent,
			},
		},
		Probe: Probe{
			Timeout: DefaultProbeTimeout,
		},
		Processing: Processing{
			TaskTimeout:  DefaultTaskTimeout,
			CacheTTL:        DefaultCacheTTL,
			CacheMaxEntries: DefaultCacheMaxEntries,
			ShardWorkers:    DefaultShardWorkers,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
