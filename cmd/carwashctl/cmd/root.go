// Package cmd implements carwashctl, the operator CLI of the dashboard.
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/carwash-dashboard/internal/config"
	"github.com/iliyamo/carwash-dashboard/internal/database"
	"github.com/iliyamo/carwash-dashboard/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "carwashctl",
	Short: "Operator tools for the carwash dashboard",
	Long: `carwashctl reads the same environment (or .env file) as the server and
talks to its database directly. Use it to check the schema, measure query
latency, create accounts and mint ops tokens for monitoring tools.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(opsTokenCmd)
}

func logger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return logging.New("development")
}

// env loads the configuration and opens the database.  The caller closes
// the returned handle.
func env(ctx context.Context) (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}
