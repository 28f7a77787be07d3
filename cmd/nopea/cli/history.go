package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <service>",
		Short: "Show a service's past deploy results.",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, client *apiClient, cmd *cobra.Command, args []string) error {
			service := args[0]
			resp, err := client.History(ctx, service)
			if err != nil {
				return err
			}
			deployments := resp.Deployments

			if asJSON {
				body, err := json.MarshalIndent(map[string]any{
					"service":     service,
					"deployments": deployments,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, string(body))
				return nil
			}

			if len(deployments) == 0 {
				fmt.Fprintf(os.Stdout, "%s: no deploy history\n", service)
				return nil
			}
			for _, r := range deployments {
				fmt.Fprintf(os.Stdout, "%s  %s  strategy=%s  verified=%v\n", r.DeployID, r.Status, r.Strategy, r.Verified)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
