// Package cli implements nopea's command-line surface, following the
// teacher's cobra root-command shape (e2e/internal/devnet/cmd/root.go
// and controlplane/telemetry/internal/data/cli/root.go): a root command
// with persistent flags, one cobra.Command per verb. "serve" builds the
// full dependency graph in-process; every other verb is a thin HTTP
// client against a running "nopea serve" instance, mirroring how the
// teacher's device/internet data commands talk to a live RPC endpoint
// rather than re-deriving chain state locally.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/false-systems/nopea/internal/config"
)

type ExitCode int

const (
	exitCodeSuccess ExitCode = 0
	exitCodeError   ExitCode = 1
)

// Run executes the nopea CLI and returns a process exit code.
func Run() ExitCode {
	rootCmd := &cobra.Command{
		Use:   "nopea",
		Short: "Deploy Kubernetes services with memory-informed rollout strategies and drift verification.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	// --verbose only affects "serve", which builds its own logger
	// in-process; every other command is a stateless HTTP client with
	// nothing local to log verbosely about.
	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging (serve only)")

	var server string
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "nopea server base URL (default: http://localhost:<api_port>)")

	rootCmd.AddCommand(
		newDeployCmd(),
		newStatusCmd(),
		newContextCmd(),
		newHistoryCmd(),
		newMemoryCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// withClient builds a thin HTTP client against the configured server
// address and installs signal-driven cancellation.
func withClient(f func(ctx context.Context, client *apiClient, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		server, err := cmd.Root().PersistentFlags().GetString("server")
		if err != nil {
			return fmt.Errorf("failed to get server flag: %w", err)
		}
		if server == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			server = "http://localhost" + cfg.HTTPAddr()
		}

		return f(ctx, newAPIClient(server), cmd, args)
	}
}
