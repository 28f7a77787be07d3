package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <service>",
		Short: "Show a service's current agent state.",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, client *apiClient, cmd *cobra.Command, args []string) error {
			service := args[0]
			resp, err := client.History(ctx, service)
			if err != nil {
				return err
			}

			if resp.State == nil {
				fmt.Fprintf(os.Stdout, "%s: no agent running (never deployed)\n", service)
				return nil
			}
			info := resp.State

			if asJSON {
				body, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, string(body))
				return nil
			}

			fmt.Fprintf(os.Stdout, "%s: status=%s deploys=%d queued=%d\n", info.Service, info.Status, info.DeployCount, info.QueueLength)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
