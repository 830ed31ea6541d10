package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hwbot/internal/app"
	"hwbot/internal/poller"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single poll iteration and exit",
		Long: "Fetches changes since now minus poller.lookback, sends notifications " +
			"for them and reports the outcome. Exits non-zero when the iteration failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(ctx.options(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = a.Stop(cmd.Context(), app.StopUnknown) }()

			res := a.RunOnce(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), formatResult(res))
			switch res.Outcome {
			case poller.OutcomeFailed, poller.OutcomeCanceled:
				return res.Err
			case poller.OutcomeIncomplete:
				return errors.New("some notifications were not delivered")
			}
			return nil
		},
	}
}

func formatResult(res poller.Result) string {
	return fmt.Sprintf("outcome=%s from=%d cursor=%d items=%d sent=%d skipped=%d took=%s",
		res.Outcome, res.From, res.Cursor, res.Items, len(res.Sent), res.Skipped, res.Took.Round(time.Millisecond))
}
