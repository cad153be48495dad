// Пакет config — загрузка и валидация конфигурации SIF
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации SIF.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Бэкенд хранилища записей ссылок: memory или postgres
	StoreBackend string
	// Бэкенд хранилища содержимого: disk или s3
	ContentBackend string
	// Путь к директории хранения файлов (только disk)
	DataDir string
	// Максимальный размер файла в байтах
	MaxFileSize int64

	// Срок действия ссылки по умолчанию (и fallback при
	// неразборчивой спецификации срока)
	DefaultExpiry time.Duration
	// Квота скачиваний по умолчанию
	DefaultMaxDownloads int
	// Удалять ли содержимое истёкших ссылок при sweep
	AutoDeleteContent bool
	// Интервал запуска свипера
	SweepInterval time.Duration

	// Параметры PostgreSQL (только postgres)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Параметры S3/MinIO (только s3)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// Кэш метаданных для read-only выдачи
	CacheSize int
	CacheTTL  time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// SIF_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SIF_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SIF_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SIF_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SIF_STORE — бэкенд хранилища записей (по умолчанию memory)
	cfg.StoreBackend = getEnvDefault("SIF_STORE", "memory")
	if cfg.StoreBackend != "memory" && cfg.StoreBackend != "postgres" {
		return nil, fmt.Errorf("SIF_STORE: недопустимое значение %q, допустимые: memory, postgres", cfg.StoreBackend)
	}

	// SIF_CONTENT_BACKEND — бэкенд содержимого (по умолчанию disk)
	cfg.ContentBackend = getEnvDefault("SIF_CONTENT_BACKEND", "disk")
	if cfg.ContentBackend != "disk" && cfg.ContentBackend != "s3" {
		return nil, fmt.Errorf("SIF_CONTENT_BACKEND: недопустимое значение %q, допустимые: disk, s3", cfg.ContentBackend)
	}

	// SIF_DATA_DIR — обязательный при disk-бэкенде
	if cfg.ContentBackend == "disk" {
		cfg.DataDir, err = getEnvRequired("SIF_DATA_DIR")
		if err != nil {
			return nil, err
		}
	}

	// SIF_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	cfg.MaxFileSize, err = getEnvInt64("SIF_MAX_FILE_SIZE", 104857600)
	if err != nil {
		return nil, fmt.Errorf("SIF_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("SIF_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// SIF_DEFAULT_EXPIRY — срок действия по умолчанию (по умолчанию 24h)
	cfg.DefaultExpiry, err = getEnvDuration("SIF_DEFAULT_EXPIRY", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SIF_DEFAULT_EXPIRY: %w", err)
	}
	if cfg.DefaultExpiry <= 0 {
		return nil, fmt.Errorf("SIF_DEFAULT_EXPIRY: значение должно быть положительным")
	}

	// SIF_DEFAULT_MAX_DOWNLOADS — квота по умолчанию (по умолчанию 10)
	cfg.DefaultMaxDownloads, err = getEnvInt("SIF_DEFAULT_MAX_DOWNLOADS", 10)
	if err != nil {
		return nil, fmt.Errorf("SIF_DEFAULT_MAX_DOWNLOADS: %w", err)
	}
	if cfg.DefaultMaxDownloads <= 0 {
		return nil, fmt.Errorf("SIF_DEFAULT_MAX_DOWNLOADS: значение должно быть положительным")
	}

	// SIF_AUTO_DELETE_CONTENT — удалять содержимое истёкших ссылок (по умолчанию false)
	cfg.AutoDeleteContent, err = getEnvBool("SIF_AUTO_DELETE_CONTENT", false)
	if err != nil {
		return nil, fmt.Errorf("SIF_AUTO_DELETE_CONTENT: %w", err)
	}

	// SIF_SWEEP_INTERVAL — интервал свипера (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvDuration("SIF_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SIF_SWEEP_INTERVAL: %w", err)
	}

	// Параметры PostgreSQL — обязательны только при SIF_STORE=postgres
	if cfg.StoreBackend == "postgres" {
		cfg.DBHost, err = getEnvRequired("SIF_DB_HOST")
		if err != nil {
			return nil, err
		}
		cfg.DBPort, err = getEnvInt("SIF_DB_PORT", 5432)
		if err != nil {
			return nil, fmt.Errorf("SIF_DB_PORT: %w", err)
		}
		cfg.DBUser, err = getEnvRequired("SIF_DB_USER")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword, err = getEnvRequired("SIF_DB_PASSWORD")
		if err != nil {
			return nil, err
		}
		cfg.DBName, err = getEnvRequired("SIF_DB_NAME")
		if err != nil {
			return nil, err
		}
		cfg.DBSSLMode = getEnvDefault("SIF_DB_SSLMODE", "disable")
	}

	// Параметры S3 — обязательны только при SIF_CONTENT_BACKEND=s3
	if cfg.ContentBackend == "s3" {
		cfg.S3Endpoint, err = getEnvRequired("SIF_S3_ENDPOINT")
		if err != nil {
			return nil, err
		}
		cfg.S3AccessKey, err = getEnvRequired("SIF_S3_ACCESS_KEY")
		if err != nil {
			return nil, err
		}
		cfg.S3SecretKey, err = getEnvRequired("SIF_S3_SECRET_KEY")
		if err != nil {
			return nil, err
		}
		cfg.S3Bucket = getEnvDefault("SIF_S3_BUCKET", "sif-content")
		cfg.S3Region = getEnvDefault("SIF_S3_REGION", "")
		cfg.S3UseSSL, err = getEnvBool("SIF_S3_USE_SSL", true)
		if err != nil {
			return nil, fmt.Errorf("SIF_S3_USE_SSL: %w", err)
		}
	}

	// SIF_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("SIF_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("SIF_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("SIF_CACHE_SIZE: значение должно быть положительным")
	}

	// SIF_CACHE_TTL — TTL записи кэша (по умолчанию 30s)
	cfg.CacheTTL, err = getEnvDuration("SIF_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIF_CACHE_TTL: %w", err)
	}

	// SIF_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SIF_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SIF_LOG_LEVEL: %w", err)
	}

	// SIF_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SIF_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SIF_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// Таймауты HTTP-сервера
	cfg.HTTPReadTimeout, err = getEnvDuration("SIF_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIF_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("SIF_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIF_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("SIF_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIF_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("SIF_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIF_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
