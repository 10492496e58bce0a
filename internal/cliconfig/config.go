package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bft-labs/sessionguard/internal/domain"
)

// DefaultFeatureFlag is the flag that enables backup upload tracking.
const DefaultFeatureFlag = "secure_storage"

// Config holds CLI configuration for sessionguard.
type Config struct {
	// StateDir holds session.json. Default: ~/.sessionguard.
	StateDir string
	// FlagsFile is the TOML feature flag file. Default: StateDir/features.toml.
	FlagsFile   string
	FeatureFlag string

	HTTPTimeout time.Duration
	// Wait bounds how long logout waits for readiness before deciding.
	Wait         time.Duration
	CloseTimeout time.Duration

	ConfirmAlways     bool
	IgnoreServerError bool
	Yes               bool

	MetricsAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FeatureFlag:  DefaultFeatureFlag,
		HTTPTimeout:  15 * time.Second,
		Wait:         10 * time.Second,
		CloseTimeout: 30 * time.Second,
		LogLevel:     "info",
		StateDir:     "", // Derived from the home directory during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("%w: state-dir is required (no home directory)", domain.ErrInvalidConfig)
		}
		c.StateDir = filepath.Join(h, ".sessionguard")
	}
	c.StateDir = strings.TrimRight(c.StateDir, "/")
	if c.StateDir == "" {
		c.StateDir = "/"
	}

	if c.FlagsFile == "" {
		c.FlagsFile = filepath.Join(c.StateDir, "features.toml")
	}
	if c.FeatureFlag == "" {
		c.FeatureFlag = DefaultFeatureFlag
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.Wait < 0 {
		return fmt.Errorf("%w: wait must not be negative", domain.ErrInvalidConfig)
	}
	if c.CloseTimeout <= 0 {
		return fmt.Errorf("%w: close timeout must be positive", domain.ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		c.LogLevel = "info"
	case "debug", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		return fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
