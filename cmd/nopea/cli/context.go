package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newContextCmd() *cobra.Command {
	var (
		namespace string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "context <service>",
		Short: "Show the memory-informed deploy context for a service.",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, client *apiClient, cmd *cobra.Command, args []string) error {
			service := args[0]
			deployCtx, err := client.Context(ctx, service, namespace)
			if err != nil {
				return err
			}

			if asJSON {
				body, err := json.MarshalIndent(deployCtx, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, string(body))
				return nil
			}

			if !deployCtx.Known {
				fmt.Fprintf(os.Stdout, "%s: unknown to memory\n", service)
				return nil
			}
			fmt.Fprintf(os.Stdout, "%s: %d failure pattern(s), %d dependency(ies)\n", service, len(deployCtx.FailurePatterns), len(deployCtx.Dependencies))
			for _, p := range deployCtx.FailurePatterns {
				fmt.Fprintf(os.Stdout, "  - %s (confidence %.2f, %d observation(s))\n", p.Error, p.Confidence, p.Observations)
			}
			for _, r := range deployCtx.Recommendations {
				fmt.Fprintf(os.Stdout, "  recommendation: %s\n", r)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&namespace, "namespace", "default", "namespace")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
