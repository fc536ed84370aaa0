package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile     string
	identitiesFile string
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "papertrail",
	Short: "Papertrail - document routing workflow engine",
	Long: `Papertrail routes documents through directed-graph approval
workflows with PKI signature verification and a hash-chained audit
trail per instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: $PAPERTRAIL_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&identitiesFile, "identities", "", "Identities file path (default: $PAPERTRAIL_HOME/identities.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(instanceCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(versionCmd)
}
