package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSMailSubject        string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	StatisticsCacheTTL     time.Duration
	FrontendURL            string
	InvitationTokenTTL     time.Duration
	AnswerRateLimit        int
	MediaMaxSizeMB         int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether media credentials were supplied.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EXAM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Exam API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.mail_subject", "exam.mail")
	v.SetDefault("cloudinary.folder", "gema/exams")
	v.SetDefault("statistics.cache_ttl", "2m")
	v.SetDefault("frontend.url", "http://localhost:3000")
	v.SetDefault("invitation.token_ttl", "72h")
	v.SetDefault("rate_limit.answers_per_second", 10)
	v.SetDefault("media.max_size_mb", 5)

	statsTTL, err := parseDuration(v.GetString("statistics.cache_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid statistics cache ttl: %w", err)
	}

	invitationTTL, err := parseDuration(v.GetString("invitation.token_ttl"), 72*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid invitation token ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSMailSubject:        v.GetString("nats.mail_subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		StatisticsCacheTTL:     statsTTL,
		FrontendURL:            strings.TrimRight(v.GetString("frontend.url"), "/"),
		InvitationTokenTTL:     invitationTTL,
		AnswerRateLimit:        v.GetInt("rate_limit.answers_per_second"),
		MediaMaxSizeMB:         v.GetInt("media.max_size_mb"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AnswerRateLimit <= 0 {
		cfg.AnswerRateLimit = 10
	}

	if cfg.MediaMaxSizeMB <= 0 {
		cfg.MediaMaxSizeMB = 5
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
