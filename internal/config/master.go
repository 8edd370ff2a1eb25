package config

import "os"

type AppConfig struct {
	DebugMode      bool
	HTTPConfig     *HTTPConfig
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
	S3Config       *S3Config
	WebhookConfig  *WebhookConfig
	GGAuthConfig   *GGAuthConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		HTTPConfig:     NewHTTPConfig(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
		S3Config:       NewS3Config(),
		WebhookConfig:  NewWebhookConfig(),
		GGAuthConfig:   NewGGAuthConfig(),
	}
}

// getEnv gets an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
