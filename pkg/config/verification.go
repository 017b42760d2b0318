package config

import (
	"time"
)

// VerificationConfig holds email verification flow configuration
type VerificationConfig struct {
	BaseURL         string        `env:"VERIFICATION_BASE_URL" env-default:"http://localhost:4000"`
	TokenTTL        time.Duration `env:"VERIFICATION_TOKEN_TTL" env-default:"24h"`
	ResendCooldown  time.Duration `env:"VERIFICATION_RESEND_COOLDOWN" env-default:"60s"`
	ResendDailyCap  int           `env:"VERIFICATION_RESEND_DAILY_CAP" env-default:"5"`
	PersistenceType string        `env:"VERIFICATION_PERSISTENCE_TYPE" env-default:"postgres"`
	DataDir         string        `env:"VERIFICATION_DATA_DIR" env-default:"./data"`
}

// NewVerificationConfigFromEnv creates a VerificationConfig from environment variables
func NewVerificationConfigFromEnv() VerificationConfig {
	return VerificationConfig{
		BaseURL:         GetEnvOrDefault("VERIFICATION_BASE_URL", "http://localhost:4000"),
		TokenTTL:        GetEnvDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		ResendCooldown:  GetEnvDuration("VERIFICATION_RESEND_COOLDOWN", 60*time.Second),
		ResendDailyCap:  GetEnvInt("VERIFICATION_RESEND_DAILY_CAP", 5),
		PersistenceType: GetEnvOrDefault("VERIFICATION_PERSISTENCE_TYPE", "postgres"),
		DataDir:         GetEnvOrDefault("VERIFICATION_DATA_DIR", "./data"),
	}
}
