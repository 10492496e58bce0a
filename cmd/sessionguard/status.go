package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/sessionguard/internal/cliconfig"
)

func newStatusCmd(cfg *cliconfig.Config, load func(*cobra.Command) error) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether this device can sign out without warning",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := buildEnv(*cfg)
			if err != nil {
				return err
			}
			if err := env.presenter.Start(ctx); err != nil {
				return err
			}
			defer env.close(cfg.CloseTimeout)

			v := waitResolved(ctx, env.presenter, cfg.Wait)
			out := cmd.OutOrStdout()
			if !v.ReadinessResolved {
				fmt.Fprintf(out, "readiness: unresolved after %s (feature flag %q unknown or no upload state yet)\n", cfg.Wait, cfg.FeatureFlag)
				return nil
			}

			r := v.Readiness
			fmt.Fprintf(out, "ready to sign out:     %t\n", r.Ready)
			fmt.Fprintf(out, "direct sign-out:       %t\n", v.CanDoDirectSignOut)
			fmt.Fprintf(out, "last device:           %t", r.IsLastDevice)
			switch {
			case !r.LastDeviceResolved:
				fmt.Fprint(out, " (not checked yet)")
			case r.ProbeFailed:
				fmt.Fprint(out, " (check failed)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "key backup upload:     %s\n", r.UploadState)
			return nil
		},
	}
}
