// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads the settings of the xhrget command from a YAML
// file and XHRGET_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gogama/xhr"
)

// Config holds all configuration settings.
type Config struct {
	// LogLevel is the zerolog level name, for example "debug".
	LogLevel string `mapstructure:"log_level"`
	// Timeout is the overall request timeout, for example "30s". Empty
	// or "0" means no timeout.
	Timeout string `mapstructure:"timeout"`
	// AttemptTimeout bounds each transport attempt. Empty means no
	// per-attempt timeout.
	AttemptTimeout string `mapstructure:"attempt_timeout"`
	// Retries is the number of times a failed idempotent attempt is
	// repeated before any response headers arrive.
	Retries int `mapstructure:"retries"`
	// SpeedLimit caps the response body rate, for example "500 kB".
	// Empty means unlimited.
	SpeedLimit string `mapstructure:"speed_limit"`
	// ResponseType is the response type name: "", "text",
	// "arraybuffer", "blob", "document" or "json".
	ResponseType string `mapstructure:"response_type"`
	// Headers are request headers set on every request.
	Headers map[string]string `mapstructure:"headers"`
	// WithCredentials sets the credentials flag of the request.
	WithCredentials bool `mapstructure:"with_credentials"`
	// Progress shows a progress bar on standard error.
	Progress bool `mapstructure:"progress"`
	// Metrics logs the fetch metrics when the request ends.
	Metrics bool `mapstructure:"metrics"`

	// ParsedLogLevel is the parsed LogLevel.
	ParsedLogLevel zerolog.Level
	// ParsedTimeout is the parsed Timeout.
	ParsedTimeout time.Duration
	// ParsedAttemptTimeout is the parsed AttemptTimeout.
	ParsedAttemptTimeout time.Duration
	// ParsedSpeedLimit is the parsed SpeedLimit in bytes per second.
	ParsedSpeedLimit uint64
	// ParsedResponseType is the parsed ResponseType.
	ParsedResponseType xhr.ResponseType
}

const (
	// DefaultConfigFilename is the configuration file read when no file
	// is named and one exists in the working directory.
	DefaultConfigFilename = ".xhrget.yaml"

	// EnvPrefix prefixes the environment variables that override file
	// settings, as in XHRGET_LOG_LEVEL.
	EnvPrefix = "XHRGET"

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "warn"

	// maxRetries bounds Retries.
	maxRetries = 10
)

// Static error definitions for better error handling.
var (
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidTimeout indicates that the timeout is not a duration.
	ErrInvalidTimeout = errors.New("timeout must be a non-negative duration")
	// ErrInvalidAttemptTimeout indicates that the attempt timeout is not
	// a positive duration.
	ErrInvalidAttemptTimeout = errors.New("attempt_timeout must be a positive duration")
	// ErrInvalidRetries indicates that the retry count is out of range.
	ErrInvalidRetries = errors.New("invalid retries")
	// ErrInvalidSpeedLimit indicates that the speed limit is not a
	// positive byte size.
	ErrInvalidSpeedLimit = errors.New("speed_limit must be a positive byte size")
	// ErrInvalidResponseType indicates that the response type is not
	// recognized.
	ErrInvalidResponseType = errors.New("invalid response_type")
)

// LoadConfig reads configuration from configFilename, or from
// DefaultConfigFilename if configFilename is empty and that file
// exists, applies environment overrides and validates the result.
func LoadConfig(configFilename string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("timeout", "")
	v.SetDefault("attempt_timeout", "")
	v.SetDefault("retries", 0)
	v.SetDefault("speed_limit", "")
	v.SetDefault("response_type", "")
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("with_credentials", false)
	v.SetDefault("progress", false)
	v.SetDefault("metrics", false)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilename == "" {
		if _, err := os.Stat(DefaultConfigFilename); err == nil {
			configFilename = DefaultConfigFilename
		}
	}
	if configFilename != "" {
		v.SetConfigFile(configFilename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config from file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig checks the configuration for validity and sets derived
// fields.
func ValidateConfig(cfg *Config) error {
	var err error

	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = DefaultLogLevel
	}
	cfg.ParsedLogLevel, err = zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedTimeout = 0
	if t := strings.TrimSpace(cfg.Timeout); t != "" {
		cfg.ParsedTimeout, err = time.ParseDuration(t)
		if err != nil || cfg.ParsedTimeout < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidTimeout, cfg.Timeout)
		}
	}

	cfg.ParsedAttemptTimeout = 0
	if t := strings.TrimSpace(cfg.AttemptTimeout); t != "" {
		cfg.ParsedAttemptTimeout, err = time.ParseDuration(t)
		if err != nil || cfg.ParsedAttemptTimeout <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidAttemptTimeout, cfg.AttemptTimeout)
		}
	}

	if cfg.Retries < 0 || cfg.Retries > maxRetries {
		return fmt.Errorf("%w: must be between 0 and %d", ErrInvalidRetries, maxRetries)
	}

	cfg.ParsedSpeedLimit = 0
	if s := strings.TrimSpace(cfg.SpeedLimit); s != "" {
		cfg.ParsedSpeedLimit, err = humanize.ParseBytes(s)
		if err != nil || cfg.ParsedSpeedLimit == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidSpeedLimit, cfg.SpeedLimit)
		}
	}

	cfg.ParsedResponseType, err = xhr.ParseResponseType(strings.ToLower(strings.TrimSpace(cfg.ResponseType)))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidResponseType, cfg.ResponseType)
	}

	return nil
}
