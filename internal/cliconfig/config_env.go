package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (SESSIONGUARD_*). It respects flags that have been explicitly set.
// Returns an error if a duration has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", os.Getenv("SESSIONGUARD_STATE_DIR"), &cfg.StateDir)
	s.setString("flags-file", os.Getenv("SESSIONGUARD_FLAGS_FILE"), &cfg.FlagsFile)
	s.setString("feature-flag", os.Getenv("SESSIONGUARD_FEATURE_FLAG"), &cfg.FeatureFlag)
	s.setString("metrics-addr", os.Getenv("SESSIONGUARD_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("SESSIONGUARD_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", os.Getenv("SESSIONGUARD_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait", os.Getenv("SESSIONGUARD_WAIT"), &cfg.Wait); err != nil {
		return err
	}
	if err := s.setDuration("close-timeout", os.Getenv("SESSIONGUARD_CLOSE_TIMEOUT"), &cfg.CloseTimeout); err != nil {
		return err
	}

	s.setBoolFromString("confirm-always", os.Getenv("SESSIONGUARD_CONFIRM_ALWAYS"), &cfg.ConfirmAlways)
	s.setBoolFromString("ignore-server-error", os.Getenv("SESSIONGUARD_IGNORE_SERVER_ERROR"), &cfg.IgnoreServerError)

	return nil
}
