// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment identifies the deployment environment of the service and its
// clients.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvBeta        Environment = "beta"
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
)

// IsValid reports whether e is a known environment.
func (e Environment) IsValid() bool {
	switch e {
	case EnvProduction, EnvStaging, EnvBeta, EnvDevelopment, EnvTesting:
		return true
	}
	return false
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

// Config holds all service configuration. Secrets are injected per deploy;
// none are baked into the binary.
type Config struct {
	Environment Environment
	Port        string

	FirebaseProjectID string

	MeteoblueAPIKey       string
	MeteoblueSharedSecret string // optional outside production
	MeteoblueMapsAPIKey   string
	MareaTidesAPIKey      string

	BrevoAPIKey     string
	SlackWebhookURL string

	CurrentAppVersion string

	RedisAddr  string // empty selects the in-memory key store
	OffersFile string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file is applied
// best-effort for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:           Environment(getEnv("ENVIRONMENT", string(EnvDevelopment))),
		Port:                  getEnv("PORT", "8080"),
		FirebaseProjectID:     os.Getenv("FIREBASE_PROJECT_ID"),
		MeteoblueAPIKey:       os.Getenv("METEOBLUE_API_KEY"),
		MeteoblueSharedSecret: os.Getenv("METEOBLUE_SHARED_SECRET"),
		MeteoblueMapsAPIKey:   os.Getenv("METEOBLUE_MAPS_API_KEY"),
		MareaTidesAPIKey:      os.Getenv("MAREA_TIDES_API_KEY"),
		BrevoAPIKey:           os.Getenv("BREVO_API_KEY"),
		SlackWebhookURL:       os.Getenv("SLACK_WEBHOOK_URL"),
		CurrentAppVersion:     getEnv("CURRENT_APP_VERSION", "0.0.0"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		OffersFile:            getEnv("OFFERS_FILE", "config/offers.yaml"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
	}

	if !cfg.Environment.IsValid() {
		return nil, fmt.Errorf("invalid ENVIRONMENT %q", cfg.Environment)
	}

	if cfg.Environment.IsProduction() {
		if cfg.FirebaseProjectID == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required in production")
		}
		if cfg.MeteoblueSharedSecret == "" {
			return nil, fmt.Errorf("METEOBLUE_SHARED_SECRET is required in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
