// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/xhr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "xhrget.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
	return name
}

func TestLoadConfig(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		name := writeConfig(t, `
log_level: debug
timeout: 30s
attempt_timeout: 5s
retries: 3
speed_limit: 500 kB
response_type: json
headers:
  Accept: application/json
with_credentials: true
progress: true
`)
		cfg, err := LoadConfig(name)
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, cfg.ParsedLogLevel)
		assert.Equal(t, 30*time.Second, cfg.ParsedTimeout)
		assert.Equal(t, 5*time.Second, cfg.ParsedAttemptTimeout)
		assert.Equal(t, 3, cfg.Retries)
		assert.Equal(t, uint64(500000), cfg.ParsedSpeedLimit)
		assert.Equal(t, xhr.JSON, cfg.ParsedResponseType)
		assert.Equal(t, map[string]string{"accept": "application/json"}, cfg.Headers)
		assert.True(t, cfg.WithCredentials)
		assert.True(t, cfg.Progress)
		assert.False(t, cfg.Metrics)
	})
	t.Run("defaults", func(t *testing.T) {
		chdir(t, t.TempDir())
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, zerolog.WarnLevel, cfg.ParsedLogLevel)
		assert.Equal(t, time.Duration(0), cfg.ParsedTimeout)
		assert.Equal(t, xhr.Default, cfg.ParsedResponseType)
		assert.Equal(t, 0, cfg.Retries)
	})
	t.Run("environment", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("XHRGET_LOG_LEVEL", "error")
		t.Setenv("XHRGET_RETRIES", "2")
		t.Setenv("XHRGET_METRICS", "true")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, zerolog.ErrorLevel, cfg.ParsedLogLevel)
		assert.Equal(t, 2, cfg.Retries)
		assert.True(t, cfg.Metrics)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
	t.Run("invalid", func(t *testing.T) {
		name := writeConfig(t, "retries: 99\n")
		_, err := LoadConfig(name)
		assert.ErrorIs(t, err, ErrInvalidRetries)
	})
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
		err  error
	}{
		{"zero", Config{}, nil},
		{"log level", Config{LogLevel: "loud"}, ErrUnknownLogLevel},
		{"log level case", Config{LogLevel: "INFO"}, nil},
		{"timeout", Config{Timeout: "soon"}, ErrInvalidTimeout},
		{"negative timeout", Config{Timeout: "-1s"}, ErrInvalidTimeout},
		{"attempt timeout", Config{AttemptTimeout: "0s"}, ErrInvalidAttemptTimeout},
		{"retries", Config{Retries: -1}, ErrInvalidRetries},
		{"speed limit", Config{SpeedLimit: "fast"}, ErrInvalidSpeedLimit},
		{"zero speed limit", Config{SpeedLimit: "0 B"}, ErrInvalidSpeedLimit},
		{"speed limit ok", Config{SpeedLimit: "1.5 MiB"}, nil},
		{"response type", Config{ResponseType: "stream"}, ErrInvalidResponseType},
		{"response type case", Config{ResponseType: "ArrayBuffer"}, nil},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := testCase.cfg
			err := ValidateConfig(&cfg)
			if testCase.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, testCase.err)
			}
		})
	}

	cfg := Config{SpeedLimit: "1.5 MiB", ResponseType: "ArrayBuffer"}
	require.NoError(t, ValidateConfig(&cfg))
	assert.Equal(t, uint64(1572864), cfg.ParsedSpeedLimit)
	assert.Equal(t, xhr.ArrayBuffer, cfg.ParsedResponseType)
}

// chdir changes the working directory for the duration of the test, like
// testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
