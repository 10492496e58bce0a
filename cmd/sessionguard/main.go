package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/sessionguard/internal/cliconfig"
)

const helpDescription = `
Sign this device out of its Matrix session without losing encryption keys.

Before signing out, sessionguard checks that this is not the last device
holding the keys and that the key backup upload has finished. If either
check fails, it asks for confirmation first.

Configuration is read from $HOME/.sessionguard/config.toml, then
SESSIONGUARD_* environment variables, then flags.
`

var exampleUsage = strings.TrimSpace(`
  sessionguard status
  sessionguard logout --wait 30s
  sessionguard logout --yes --ignore-server-error
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "sessionguard",
		Short:         "Safe direct sign-out for a Matrix session",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.sessionguard/config.toml)")
	pf.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory holding session.json (default: $HOME/.sessionguard)")
	pf.StringVar(&cfg.FlagsFile, "flags-file", cfg.FlagsFile, "feature flag file (default: <state-dir>/features.toml)")
	pf.StringVar(&cfg.FeatureFlag, "feature-flag", cfg.FeatureFlag, "flag that enables key backup upload tracking")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	pf.DurationVar(&cfg.Wait, "wait", cfg.Wait, "how long to wait for the readiness checks")
	pf.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (optional)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	// load resolves file, env and flag configuration for a subcommand.
	load := func(cmd *cobra.Command) error {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}

		// Env overrides the file; flags override both via the changed map.
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return err
		}
		return cfg.Validate()
	}

	root.AddCommand(newLogoutCmd(&cfg, load), newStatusCmd(&cfg, load))

	if err := root.Execute(); err != nil {
		logger := cliconfig.Logger(cfg.LogLevel)
		logger.Error().Err(err).Msg("sessionguard")
		os.Exit(1)
	}
}
