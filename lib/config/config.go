// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pmbot-project/pmbot/lib/ref"
)

// Environment variable names for the required credentials. These match
// the variables the deployment tooling already provisions.
const (
	EnvHomeserver  = "MATRIX_SERVER"
	EnvUserID      = "MATRIX_BOT_USER"
	EnvAccessToken = "MATRIX_ACCESS_TOKEN"
)

// Config is the complete, immutable bot configuration.
type Config struct {
	// HomeserverURL is the base URL of the Matrix homeserver
	// (e.g., "https://matrix.example.org"). Trailing slashes are
	// stripped at load time.
	HomeserverURL string

	// UserID is the bot's fully-qualified Matrix user ID
	// (e.g., "@pmbot:example.org"). The whoami probe at startup must
	// return exactly this identity.
	UserID ref.UserID

	// AccessToken is the bearer token used for all authenticated
	// homeserver calls.
	AccessToken string

	// Tuning holds operational knobs with defaults.
	Tuning Tuning
}

// Tuning holds operational knobs loaded from the optional YAML tuning
// file. Fields absent from the file keep their defaults.
type Tuning struct {
	// SyncTimeout is the server-side long-poll hold time for /sync.
	// The homeserver returns an empty response after this duration
	// when no events arrive. Default: 30s.
	SyncTimeout time.Duration `yaml:"sync_timeout"`

	// BackoffFloor is the first retry delay after a transport
	// failure. Default: 1s.
	BackoffFloor time.Duration `yaml:"backoff_floor"`

	// BackoffCap is the maximum retry delay. Default: 30s.
	BackoffCap time.Duration `yaml:"backoff_cap"`

	// MaxConsecutiveFailures is the number of consecutive transport
	// failures tolerated before the sync loop gives up and the
	// process exits non-zero. Default: 10.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	// LogLevel is the slog level name: "debug", "info", "warn", or
	// "error". Default: "info".
	LogLevel string `yaml:"log_level"`
}

// DefaultTuning returns the tuning defaults applied before the YAML
// file (if any) is merged in.
func DefaultTuning() Tuning {
	return Tuning{
		SyncTimeout:            30 * time.Second,
		BackoffFloor:           time.Second,
		BackoffCap:             30 * time.Second,
		MaxConsecutiveFailures: 10,
		LogLevel:               "info",
	}
}

// Load builds the Config from the environment and the optional tuning
// file.
//
// envFile, when non-empty, names a .env file loaded into the process
// environment first (existing variables win — godotenv does not
// override). tuningFile, when non-empty, names a YAML file overriding
// tuning defaults; a missing tuning file is an error, since the
// operator asked for it explicitly.
func Load(envFile, tuningFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	var missing []string
	homeserverURL := os.Getenv(EnvHomeserver)
	if homeserverURL == "" {
		missing = append(missing, EnvHomeserver)
	}
	rawUserID := os.Getenv(EnvUserID)
	if rawUserID == "" {
		missing = append(missing, EnvUserID)
	}
	accessToken := os.Getenv(EnvAccessToken)
	if accessToken == "" {
		missing = append(missing, EnvAccessToken)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s",
			strings.Join(missing, ", "))
	}

	if _, err := url.Parse(homeserverURL); err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvHomeserver, homeserverURL, err)
	}
	userID, err := ref.ParseUserID(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvUserID, err)
	}

	tuning := DefaultTuning()
	if tuningFile != "" {
		if err := loadTuning(tuningFile, &tuning); err != nil {
			return nil, err
		}
	}
	if err := tuning.validate(); err != nil {
		return nil, err
	}

	return &Config{
		HomeserverURL: strings.TrimRight(homeserverURL, "/"),
		UserID:        userID,
		AccessToken:   accessToken,
		Tuning:        tuning,
	}, nil
}

// loadTuning merges the YAML tuning file into tuning. Fields absent
// from the file keep their current (default) values.
func loadTuning(path string, tuning *Tuning) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, tuning); err != nil {
		return fmt.Errorf("parsing tuning file %s: %w", path, err)
	}
	return nil
}

func (t Tuning) validate() error {
	var errs []error
	if t.SyncTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sync_timeout must be positive, got %v", t.SyncTimeout))
	}
	if t.BackoffFloor <= 0 {
		errs = append(errs, fmt.Errorf("backoff_floor must be positive, got %v", t.BackoffFloor))
	}
	if t.BackoffCap < t.BackoffFloor {
		errs = append(errs, fmt.Errorf("backoff_cap %v is below backoff_floor %v", t.BackoffCap, t.BackoffFloor))
	}
	if t.MaxConsecutiveFailures < 1 {
		errs = append(errs, fmt.Errorf("max_consecutive_failures must be at least 1, got %d", t.MaxConsecutiveFailures))
	}
	if _, err := t.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel converts the LogLevel name to a slog.Level.
func (t Tuning) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(t.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q (expected debug, info, warn, or error)", t.LogLevel)
	}
}
