// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package config loads the process configuration in three layers:
// struct defaults, an optional YAML file, then PRAETOR_-prefixed
// environment variables, each layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/praetor/config.yaml",
	"/etc/praetor/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "PRAETOR_CONFIG"

// envPrefix namespaces the environment variable layer.
const envPrefix = "PRAETOR_"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Threat    ThreatConfig    `koanf:"threat"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment selects production behavior (HSTS). One of
	// "development" or "production".
	Environment string `koanf:"environment"`
}

// SecurityConfig holds authentication and response-policy settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Required outside development.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionCookie is the cookie the token provider reads.
	SessionCookie string `koanf:"session_cookie"`

	// JWTIssuer, when set, is enforced on tokens.
	JWTIssuer string `koanf:"jwt_issuer"`

	// TokenTimeout bounds a single token retrieval.
	TokenTimeout time.Duration `koanf:"token_timeout"`

	// AdminRole is the top role for escalation flagging.
	AdminRole string `koanf:"admin_role"`

	// ContentSecurityPolicy overrides the built-in CSP when set.
	ContentSecurityPolicy string `koanf:"content_security_policy"`

	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// AdminRequestsPerMinute caps the admin surface per IP.
	AdminRequestsPerMinute int `koanf:"admin_requests_per_minute"`
}

// RateLimitConfig holds the limiter tiers and housekeeping settings.
type RateLimitConfig struct {
	AuthLimit       int           `koanf:"auth_limit"`
	AuthWindow      time.Duration `koanf:"auth_window"`
	SensitiveLimit  int           `koanf:"sensitive_limit"`
	SensitiveWindow time.Duration `koanf:"sensitive_window"`
	DefaultLimit    int           `koanf:"default_limit"`
	DefaultWindow   time.Duration `koanf:"default_window"`

	// AutoBlockThreshold is the violating-window count that blocks a key.
	AutoBlockThreshold int `koanf:"auto_block_threshold"`

	// SweepInterval is how often expired windows are evicted.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ThreatConfig holds the threat tracker thresholds.
type ThreatConfig struct {
	BruteForceThreshold   int           `koanf:"brute_force_threshold"`
	BruteForceWindow      time.Duration `koanf:"brute_force_window"`
	SuspiciousIPThreshold int           `koanf:"suspicious_ip_threshold"`
	AutoBlockThreshold    int           `koanf:"auto_block_threshold"`
	FailedAttemptTTL      time.Duration `koanf:"failed_attempt_ttl"`
	SuspiciousIPTTL       time.Duration `koanf:"suspicious_ip_ttl"`
	SweepInterval         time.Duration `koanf:"sweep_interval"`
}

// AuditConfig holds the audit sink settings.
type AuditConfig struct {
	QueueSize int `koanf:"queue_size"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns all defaults, applied before file and env layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8437,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:              "",
			SessionCookie:          "session-token",
			JWTIssuer:              "",
			TokenTimeout:           5 * time.Second,
			AdminRole:              "ADMIN",
			ContentSecurityPolicy:  "",
			CORSOrigins:            []string{},
			AdminRequestsPerMinute: 120,
		},
		RateLimit: RateLimitConfig{
			AuthLimit:          10,
			AuthWindow:         15 * time.Minute,
			SensitiveLimit:     50,
			SensitiveWindow:    15 * time.Minute,
			DefaultLimit:       100,
			DefaultWindow:      15 * time.Minute,
			AutoBlockThreshold: 5,
			SweepInterval:      5 * time.Minute,
		},
		Threat: ThreatConfig{
			BruteForceThreshold:   5,
			BruteForceWindow:      15 * time.Minute,
			SuspiciousIPThreshold: 5,
			AutoBlockThreshold:    10,
			FailedAttemptTTL:      time.Hour,
			SuspiciousIPTTL:       24 * time.Hour,
			SweepInterval:         15 * time.Minute,
		},
		Audit: AuditConfig{
			QueueSize: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if origins := k.String("security.cors_origins"); origins != "" && strings.Contains(origins, ",") {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set("security.cors_origins", parts); err != nil {
			return nil, fmt.Errorf("failed to set cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps PRAETOR_SECTION_SOME_KEY to section.some_key. The
// first underscore after the prefix separates the section; the rest of
// the name keeps its underscores.
func envTransform(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.Replace(name, "_", ".", 1)
}

// findConfigFile returns the first config file that exists, preferring
// the path in PRAETOR_CONFIG.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if env := strings.ToLower(c.Server.Environment); env != "development" && env != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	if c.IsProduction() && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	if c.RateLimit.DefaultLimit <= 0 || c.RateLimit.AuthLimit <= 0 || c.RateLimit.SensitiveLimit <= 0 {
		return fmt.Errorf("ratelimit limits must be positive")
	}
	if c.RateLimit.AutoBlockThreshold <= 0 || c.Threat.AutoBlockThreshold <= 0 {
		return fmt.Errorf("auto block thresholds must be positive")
	}
	return nil
}
