package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/sessionguard/internal/cliconfig"
	"github.com/bft-labs/sessionguard/pkg/signout"
)

func newLogoutCmd(cfg *cliconfig.Config, load func(*cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign this device out, asking first if keys could be lost",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			return runLogout(cmd, *cfg)
		},
	}

	cmd.Flags().BoolVarP(&cfg.Yes, "yes", "y", cfg.Yes, "confirm without prompting")
	cmd.Flags().BoolVar(&cfg.IgnoreServerError, "ignore-server-error", cfg.IgnoreServerError, "clear the local session even if the server call fails (skips confirmation)")
	cmd.Flags().BoolVar(&cfg.ConfirmAlways, "confirm-always", cfg.ConfirmAlways, "always ask for confirmation")
	cmd.Flags().DurationVar(&cfg.CloseTimeout, "close-timeout", cfg.CloseTimeout, "how long to wait for a running logout on interrupt")
	return cmd
}

func runLogout(cmd *cobra.Command, cfg cliconfig.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}
	p := env.presenter
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := env.close(cfg.CloseTimeout); err != nil {
			env.zl.Warn().Err(err).Msg("shutdown")
		}
	}()

	out := cmd.OutOrStdout()
	view := waitResolved(ctx, p, cfg.Wait)
	if !view.ReadinessResolved {
		fmt.Fprintf(out, "Readiness checks did not finish within %s.\n", cfg.Wait)
	}

	if err := p.Handle(ctx, signout.Logout{IgnoreServerError: cfg.IgnoreServerError}); err != nil {
		return err
	}

	if p.State().LogoutAction.IsConfirming() {
		printWarning(out, p.State())
		ok := cfg.Yes
		if !ok {
			ok, err = prompt(ctx, cmd.InOrStdin(), out, "Sign out anyway? [y/N] ")
			if err != nil {
				return err
			}
		}
		if !ok {
			_ = p.Handle(ctx, signout.CloseDialogs{})
			fmt.Fprintln(out, "Sign-out cancelled.")
			return nil
		}
		if err := p.Handle(ctx, signout.Logout{IgnoreServerError: cfg.IgnoreServerError}); err != nil {
			return err
		}
	}

	if err := p.Wait(ctx); err != nil {
		return fmt.Errorf("interrupted while signing out: %w", err)
	}

	final := p.State().LogoutAction
	switch {
	case final.IsSuccess():
		device, _ := final.Value()
		if device == "" {
			fmt.Fprintln(out, "No session to sign out.")
		} else {
			fmt.Fprintf(out, "Signed out device %s.\n", device)
		}
		return nil
	case final.IsFailure():
		fmt.Fprintln(out, "Sign-out failed. Retry with --ignore-server-error to clear the local session anyway.")
		return final.Err()
	default:
		return fmt.Errorf("unexpected logout state %s", final.Kind())
	}
}

func printWarning(w io.Writer, v signout.ViewState) {
	r := v.Readiness
	switch {
	case !v.ReadinessResolved:
		fmt.Fprintln(w, "Warning: could not confirm that your keys are backed up.")
	case r.IsLastDevice:
		fmt.Fprintln(w, "Warning: this is your last device. Signing out may lose access to encrypted messages.")
	case !r.UploadState.IsSteady():
		fmt.Fprintf(w, "Warning: key backup is not complete (%s).\n", r.UploadState)
	}
	if r.ProbeFailed {
		fmt.Fprintln(w, "Note: the last-device check failed; assuming other devices exist.")
	}
}

// prompt reads a yes/no answer; ctx cancellation counts as no.
func prompt(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprint(out, question)

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			errc <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, nil
	case err := <-errc:
		if err == io.EOF {
			return false, nil
		}
		return false, err
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
