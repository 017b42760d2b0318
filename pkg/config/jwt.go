package config

import (
	"net/http"
	"time"
)

// JWTConfig holds JWT authentication configuration
// This is shared across all services to avoid duplication
type JWTConfig struct {
	Secret            string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	CookieHttpOnly    bool          `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure      bool          `env:"COOKIE_SECURE" env-default:"true"`
	AccessTokenExpiry time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"5m"`
	Issuer            string        `env:"JWT_ISSUER" env-default:"tasknest"`
	Audience          string        `env:"JWT_AUDIENCE" env-default:"tasknest"`
}

// CookieSameSite returns the appropriate SameSite setting based on CookieSecure
func (j JWTConfig) CookieSameSite() http.SameSite {
	if j.CookieSecure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// NewJWTConfigFromEnv creates a JWTConfig from environment variables
func NewJWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		Secret:            GetEnvOrDefault("JWT_SECRET", "very-secure-jwt-secret"),
		CookieHttpOnly:    GetEnvBool("COOKIE_HTTP_ONLY", true),
		CookieSecure:      GetEnvBool("COOKIE_SECURE", true),
		AccessTokenExpiry: GetEnvDuration("ACCESS_TOKEN_EXPIRY", 5*time.Minute),
		Issuer:            GetEnvOrDefault("JWT_ISSUER", "tasknest"),
		Audience:          GetEnvOrDefault("JWT_AUDIENCE", "tasknest"),
	}
}
