package main

import (
	"github.com/spf13/cobra"

	"hwbot/internal/app"
	"hwbot/internal/config"
)

type commandContext struct {
	configPath string
	envFile    string
	lookup     config.LookupFunc
}

// options resolves the flags of the executing command.
func (c *commandContext) options(cmd *cobra.Command) app.Options {
	return app.Options{
		ConfigPath:     c.configPath,
		EnvFile:        c.envFile,
		ConfigExplicit: cmd.Flags().Changed("config"),
		LookupEnv:      c.lookup,
	}
}

// newRootCommand builds the CLI. lookup replaces os.LookupEnv when non-nil.
func newRootCommand(lookup config.LookupFunc) *cobra.Command {
	ctx := &commandContext{lookup: lookup}

	rootCmd := &cobra.Command{
		Use:           "hwbot",
		Short:         "Homework review status notifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, ctx.options(cmd))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", config.DefaultPath, "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env-file", config.DefaultEnvFile, "dotenv file with credentials (empty disables)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))

	return rootCmd
}
