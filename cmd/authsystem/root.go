package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authsystem CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authsystem",
		Short: "Username/password authentication service",
		Long: `authsystem registers accounts, confirms email addresses, signs users in
with HS256 session tokens and serves the protected profile API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("authsystem %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
