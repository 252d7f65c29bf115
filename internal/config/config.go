// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (optional, enables Redis-backed rate limiting)
	RedisAddr string `koanf:"redis_addr"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`

	// Field encryption. Hex-encoded AES-256 key (64 chars) and CBC IV (32 chars).
	// The IV is fixed process-wide so that identical plaintexts produce identical
	// ciphertexts, which is what makes exact-match filtering on encrypted columns
	// possible. See internal/cipher for the trade-off.
	AESKey   string `koanf:"aes_key"`
	AESKeyIV string `koanf:"aes_key_iv"`

	// Pagination
	PageSize    int `koanf:"page_size"`
	MaxPageSize int `koanf:"max_page_size"`

	// CORS. Comma-separated list of allowed origins; empty disables CORS.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrMissingAESKey      = errors.New("AES_KEY is required")
	ErrMissingAESKeyIV    = errors.New("AES_KEY_IV is required")
	ErrInvalidAESKey      = errors.New("AES_KEY must be 64 hex characters")
	ErrInvalidAESKeyIV    = errors.New("AES_KEY_IV must be 32 hex characters")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort        = 8080
	DefaultEnv         = "development"
	DefaultPageSize    = 10
	DefaultMaxPageSize = 100
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	pageSize, pageSizeErr := getEnvIntOrDefault("PAGE_SIZE", k.Int("page_size"), DefaultPageSize)
	if pageSizeErr != nil {
		loadErrs = append(loadErrs, pageSizeErr)
	}

	maxPageSize, maxPageSizeErr := getEnvIntOrDefault("MAX_PAGE_SIZE", k.Int("max_page_size"), DefaultMaxPageSize)
	if maxPageSizeErr != nil {
		loadErrs = append(loadErrs, maxPageSizeErr)
	}

	cfg := &Config{
		Port:               port,
		Env:                getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		DatabaseURL:        getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:          getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		JWTSecret:          getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		AESKey:             getEnvOrKoanf("AES_KEY", k, "aes_key"),
		AESKeyIV:           getEnvOrKoanf("AES_KEY_IV", k, "aes_key_iv"),
		PageSize:           pageSize,
		MaxPageSize:        maxPageSize,
		CORSAllowedOrigins: getEnvOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present and well-formed.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	if c.AESKey == "" {
		errs = append(errs, ErrMissingAESKey)
	} else if b, err := hex.DecodeString(c.AESKey); err != nil || len(b) != 32 {
		errs = append(errs, ErrInvalidAESKey)
	}

	if c.AESKeyIV == "" {
		errs = append(errs, ErrMissingAESKeyIV)
	} else if b, err := hex.DecodeString(c.AESKeyIV); err != nil || len(b) != 16 {
		errs = append(errs, ErrInvalidAESKeyIV)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":          fmt.Sprintf("%d", c.Port),
		"env":           c.Env,
		"database_url":  maskDatabaseURL(c.DatabaseURL),
		"redis_addr":    c.RedisAddr,
		"jwt_secret":    maskSecret(c.JWTSecret),
		"aes_key":       maskSecret(c.AESKey),
		"aes_key_iv":    maskSecret(c.AESKeyIV),
		"page_size":     fmt.Sprintf("%d", c.PageSize),
		"max_page_size": fmt.Sprintf("%d", c.MaxPageSize),
		"cors_origins":  c.CORSAllowedOrigins,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
