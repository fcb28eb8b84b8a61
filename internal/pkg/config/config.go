// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultConfigFile задает имя файла конфигурации по умолчанию.
const DefaultConfigFile = "config.yml"

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxUploadSizeMB int           `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	// CORSOrigins - источники, которым разрешены запросы из браузера; пусто - CORS выключен.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
	// UploadRate ограничивает число загрузок в секунду; 0 - без ограничений.
	UploadRate  float64 `json:"upload_rate" yaml:"upload_rate"`
	UploadBurst int     `json:"upload_burst" yaml:"upload_burst"`
}

// Merge содержит настройки объединения шардов
type Merge struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Output  string `json:"output" yaml:"output"` // имя файла внутри каталога экспорта
	Indent  int    `json:"indent" yaml:"indent"`
}

// Converter содержит настройки преобразования
type Converter struct {
	ChatID int64 `json:"chat_id" yaml:"chat_id"`
	// Senders сопоставляет отображаемое имя отправителя его id вида user123.
	Senders      map[string]string `json:"senders" yaml:"senders"`
	StickerEmoji string            `json:"sticker_emoji" yaml:"sticker_emoji"`
	Indent       int               `json:"indent" yaml:"indent"`
	Merge        Merge             `json:"merge" yaml:"merge"`
}

// Probe содержит настройки анализа вложений
type Probe struct {
	FFProbePath string        `json:"ffprobe_path" yaml:"ffprobe_path"` // пусто - поиск в PATH
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`           // 0 - без ограничений
}

// Processing содержит конфигурацию обработки
type Processing struct {
	TaskTimeout  time.Duration `json:"task_timeout" yaml:"task_timeout"` // 0 - без ограничений
	CacheTTL        time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheMaxEntries int           `json:"cache_max_entries" yaml:"cache_max_entries"` // 0 - без ограничений
	ShardWorkers    int           `json:"shard_workers" yaml:"shard_workers"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // auto, text, json
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Converter  Converter  `json:"converter" yaml:"converter"`
	Probe      Probe      `json:"probe" yaml:"probe"`
	Processing Processing `json:"processing" yaml:"processing"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем .env,
// затем YAML-файл (если есть), затем переменные окружения.
func LoadConfig(path string) (*Config, error) {
	// Отсутствие .env не ошибка
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigFile
	}

	cfg := defaultConfig()
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromYAML накладывает значения из YAML-файла на cfg.
// Отсутствующий файл не считается ошибкой.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	if cfg.Converter.Senders == nil {
		cfg.Converter.Senders = map[string]string{}
	}
	return nil
}

// applyEnv переопределяет отдельные значения переменными окружения.
func applyEnv(cfg *Config) error {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Probe.FFProbePath = getEnv("FFPROBE_PATH", cfg.Probe.FFProbePath)
	cfg.Converter.StickerEmoji = getEnv("STICKER_EMOJI", cfg.Converter.StickerEmoji)

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("недопустимый CHAT_ID: %w", err)
		}
		cfg.Converter.ChatID = id
	}

	if v := os.Getenv("SHARD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый SHARD_WORKERS: %w", err)
		}
		cfg.Processing.ShardWorkers = n
	}

	if v := os.Getenv("TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый TASK_TIMEOUT: %w", err)
		}
		cfg.Processing.TaskTimeout = d
	}

	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый CACHE_TTL: %w", err)
		}
		cfg.Processing.CacheTTL = d
	}

	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Server.CleanupInterval <= 0 {
		return fmt.Errorf("server.cleanup_interval должно быть положительным")
	}

	if c.Server.UploadRate < 0 {
		return fmt.Errorf("server.upload_rate должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Server.UploadRate > 0 && c.Server.UploadBurst <= 0 {
		return fmt.Errorf("server.upload_burst должно быть положительным при заданном upload_rate")
	}

	for name, id := range c.Converter.Senders {
		if name == "" || id == "" {
			return fmt.Errorf("converter.senders не может содержать пустые имена или id")
		}
	}

	if c.Converter.Indent < 0 || c.Converter.Indent > 16 {
		return fmt.Errorf("converter.indent должен быть в диапазоне 0-16")
	}

	if c.Converter.Merge.Indent < 0 || c.Converter.Merge.Indent > 16 {
		return fmt.Errorf("converter.merge.indent должен быть в диапазоне 0-16")
	}

	if c.Converter.Merge.Enabled && c.Converter.Merge.Output == "" {
		return fmt.Errorf("converter.merge.output не может быть пустым")
	}

	if c.Probe.Timeout < 0 {
		return fmt.Errorf("probe.timeout должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.TaskTimeout < 0 {
		return fmt.Errorf("processing.task_timeout должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.CacheTTL <= 0 {
		return fmt.Errorf("processing.cache_ttl должно быть положительным")
	}

	if c.Processing.CacheMaxEntries < 0 {
		return fmt.Errorf("processing.cache_max_entries должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.ShardWorkers <= 0 {
		return fmt.Errorf("processing.shard_workers должно быть положительным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format должен быть одним из: auto, text, json")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
