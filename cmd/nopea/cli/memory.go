package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newMemoryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Show the knowledge graph's current size.",
		RunE: withClient(func(ctx context.Context, client *apiClient, cmd *cobra.Command, args []string) error {
			resp, err := client.Memory(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				body, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, string(body))
				return nil
			}

			fmt.Fprintf(os.Stdout, "nodes=%d relationships=%d\n", resp.Nodes, resp.Relationships)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
