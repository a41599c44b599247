package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

// Create the root command
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parkctl",
		Short: "parkctl: find a carpark, check its free lots and route to it",
		Long: "parkctl drives one parking session from the command line against the configured\n" +
			"availability, geocoding and routing services. Configuration comes from the same\n" +
			"environment variables (and .env file) as the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("log", "l", "warn", "Set log level. Available: debug, info, warn, error")
	cmd.PersistentFlags().String("catalog", "", "catalog file (overrides CATALOG_PATH)")
	cmd.PersistentFlags().StringP("output", "o", "text", "Output format. Available: text, json, yaml")
	cmd.PersistentFlags().Duration("timeout", 0, "deadline for each external call (overrides EXTERNAL_CALL_TIMEOUT)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newRouteCmd())
	return cmd
}

// Create the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "parkctl %s (%s) %s\n", version, commit, buildDate)
		},
	}
}

// Main entry point
func main() {
	root := newRootCmd()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
