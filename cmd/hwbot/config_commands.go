package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hwbot/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and required environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ctx.options(cmd)
			m := config.NewManager(opts.ConfigPath)
			m.SetOptional(!opts.ConfigExplicit)
			m.SetEnvFile(opts.EnvFile)
			if opts.LookupEnv != nil {
				m.SetLookupEnv(opts.LookupEnv)
			}
			cfg, err := m.Load()
			if err != nil {
				return err
			}
			sch, _ := cfg.Schedule()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration valid")
			fmt.Fprintf(out, "  endpoint: %s\n", cfg.Endpoint())
			fmt.Fprintf(out, "  schedule: %s\n", sch)
			fmt.Fprintf(out, "  chat_id:  %d\n", cfg.Telegram.ChatID)
			return nil
		},
	}
}
