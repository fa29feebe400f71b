package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Video    VideoConfig
	Ingest   IngestConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// VideoConfig holds the upload form limits and optional storage settings.
type VideoConfig struct {
	MaxNameLength        int
	MaxDescriptionLength int
	MaxSizeBytes         int64
	MaxDurationSeconds   float64

	StorageEnabled  bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
	ListCacheTTL    time.Duration
}

// IngestConfig tunes the background verification queue.
type IngestConfig struct {
	Workers       int
	Retries       int
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Video = VideoConfig{
		MaxNameLength:        positiveInt(v.GetInt("VIDEO_MAX_NAME_LENGTH"), 50),
		MaxDescriptionLength: positiveInt(v.GetInt("VIDEO_MAX_DESCRIPTION_LENGTH"), 200),
		MaxSizeBytes:         positiveInt64(v.GetInt64("VIDEO_MAX_SIZE"), 100000000),
		MaxDurationSeconds:   v.GetFloat64("VIDEO_MAX_DURATION"),
		StorageEnabled:       v.GetBool("ENABLE_VIDEO_STORAGE"),
		StorageDir:           v.GetString("VIDEO_STORAGE_DIR"),
		SignedURLSecret:      v.GetString("VIDEO_SIGNED_URL_SECRET"),
		SignedURLTTL:         parseDuration(v.GetString("VIDEO_SIGNED_URL_TTL"), 30*time.Minute),
		Retention:            parseDuration(v.GetString("VIDEO_RETENTION"), 7*24*time.Hour),
		ListCacheTTL:         parseDuration(v.GetString("VIDEO_LIST_CACHE_TTL"), time.Minute),
	}
	if cfg.Video.MaxDurationSeconds <= 0 {
		cfg.Video.MaxDurationSeconds = 600
	}

	cfg.Ingest = IngestConfig{
		Workers:       positiveInt(v.GetInt("INGEST_WORKERS"), 2),
		Retries:       positiveInt(v.GetInt("INGEST_RETRIES"), 3),
		SweepInterval: parseDuration(v.GetString("INGEST_SWEEP_INTERVAL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "video_upload")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("VIDEO_MAX_NAME_LENGTH", 50)
	v.SetDefault("VIDEO_MAX_DESCRIPTION_LENGTH", 200)
	v.SetDefault("VIDEO_MAX_SIZE", 100000000)
	v.SetDefault("VIDEO_MAX_DURATION", 600)

	v.SetDefault("ENABLE_VIDEO_STORAGE", false)
	v.SetDefault("VIDEO_STORAGE_DIR", "./videos")
	v.SetDefault("VIDEO_SIGNED_URL_SECRET", "dev_video_secret")
	v.SetDefault("VIDEO_SIGNED_URL_TTL", "30m")
	v.SetDefault("VIDEO_RETENTION", "168h")
	v.SetDefault("VIDEO_LIST_CACHE_TTL", "1m")

	v.SetDefault("INGEST_WORKERS", 2)
	v.SetDefault("INGEST_RETRIES", 3)
	v.SetDefault("INGEST_SWEEP_INTERVAL", "1h")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
