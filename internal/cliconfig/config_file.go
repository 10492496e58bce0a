package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StateDir          string `toml:"state_dir"`
	FlagsFile         string `toml:"flags_file"`
	FeatureFlag       string `toml:"feature_flag"`
	HTTPTimeout       string `toml:"http_timeout"`
	Wait              string `toml:"wait"`
	CloseTimeout      string `toml:"close_timeout"`
	ConfirmAlways     *bool  `toml:"confirm_always"`
	IgnoreServerError *bool  `toml:"ignore_server_error"`
	MetricsAddr       string `toml:"metrics_addr"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.sessionguard/config.toml, or "" without a
// home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".sessionguard", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("flags-file", fc.FlagsFile, &cfg.FlagsFile)
	s.setString("feature-flag", fc.FeatureFlag, &cfg.FeatureFlag)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait", fc.Wait, &cfg.Wait); err != nil {
		return err
	}
	if err := s.setDuration("close-timeout", fc.CloseTimeout, &cfg.CloseTimeout); err != nil {
		return err
	}

	s.setBool("confirm-always", fc.ConfirmAlways, &cfg.ConfirmAlways)
	s.setBool("ignore-server-error", fc.IgnoreServerError, &cfg.IgnoreServerError)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
