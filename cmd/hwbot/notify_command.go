package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hwbot/internal/app"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test [text]",
		Short: "Send a test message to the configured chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(ctx.options(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = a.Stop(cmd.Context(), app.StopUnknown) }()

			if err := a.NotifyTest(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	})
	return notifyCmd
}
