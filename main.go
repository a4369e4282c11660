// ledger-da-client is a command line client for an app-DA ledger node: a
// proof-producing key/value ledger that publishes state transitions to
// the Celestia data availability network. It encodes account operations
// into transition batches, submits them, and retrieves published
// transition records with bounded-retry backoff.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/withObsrvr/ledger-da-client/client"
)

const defaultAPIURL = "http://127.0.0.1:16000"

var (
	flagAPIURL   string
	flagLogLevel string

	logger *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "ledger-da-client",
		Short: "Client for a proof-producing ledger with Celestia data availability",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(flagLogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagAPIURL, "api-url", envOr("LEDGER_API_URL", defaultAPIURL),
		"base URL of the ledger node API")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOr("LOG_LEVEL", "info"),
		"log level (debug, info, warn, error)")

	root.AddCommand(
		newCreateAccountCmd(),
		newTransferCmd(),
		newBalanceCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newTransitionCmd(),
		newAuditCmd(),
		newMonitorCmd(),
		newDemoCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func newClient() *client.Client {
	return client.New(flagAPIURL, client.WithLogger(logger))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
