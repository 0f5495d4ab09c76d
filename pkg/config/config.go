package config

import (
	"errors"
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
	Google   GoogleConfig
	Events   EventsConfig
	GC       GCConfig
	CORS     CORSConfig
	Log      LogConfig
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

// GoogleConfig holds everything needed to talk to Google on a user's behalf.
type GoogleConfig struct {
	// AllowedClientIDs is the OAuth audience allowlist for inbound tokens.
	AllowedClientIDs []string
	// TokenInfoEndpoint verifies bearer and ID tokens.
	TokenInfoEndpoint string
	TokenInfoCacheTTL time.Duration
	// CalendarEndpoint overrides the Calendar API base URL (tests only).
	CalendarEndpoint string
	// ServiceAccountToken authorises the public calendar listing. Empty
	// disables the public endpoints.
	ServiceAccountToken string
}

// EventsConfig tunes the event listing pipeline.
type EventsConfig struct {
	PageSize int
}

// GCConfig gates the garbage collection endpoint.
type GCConfig struct {
	Enabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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

	cfg.Google = GoogleConfig{
		AllowedClientIDs:    splitAndTrim(v.GetString("GOOGLE_ALLOWED_CLIENT_IDS")),
		TokenInfoEndpoint:   v.GetString("GOOGLE_TOKENINFO_ENDPOINT"),
		TokenInfoCacheTTL:   parseDuration(v.GetString("GOOGLE_TOKENINFO_CACHE_TTL"), 5*time.Minute),
		CalendarEndpoint:    v.GetString("GOOGLE_CALENDAR_ENDPOINT"),
		ServiceAccountToken: v.GetString("GOOGLE_SERVICE_ACCOUNT_TOKEN"),
	}

	cfg.Events = EventsConfig{
		PageSize: v.GetInt("EVENTS_PAGE_SIZE"),
	}

	cfg.GC = GCConfig{
		Enabled: v.GetBool("ENABLE_GC"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ticktock")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("GOOGLE_ALLOWED_CLIENT_IDS", "")
	v.SetDefault("GOOGLE_TOKENINFO_ENDPOINT", "https://oauth2.googleapis.com/tokeninfo")
	v.SetDefault("GOOGLE_TOKENINFO_CACHE_TTL", "5m")
	v.SetDefault("GOOGLE_CALENDAR_ENDPOINT", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_TOKEN", "")

	v.SetDefault("EVENTS_PAGE_SIZE", 10)
	v.SetDefault("ENABLE_GC", true)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
