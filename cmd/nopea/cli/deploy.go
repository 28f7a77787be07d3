package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/httpapi"
	"github.com/false-systems/nopea/internal/manifestio"
)

func newDeployCmd() *cobra.Command {
	var (
		file      string
		service   string
		namespace string
		strategy  string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a service's Kubernetes manifests.",
		RunE: withClient(func(ctx context.Context, client *apiClient, cmd *cobra.Command, args []string) error {
			if service == "" {
				return fmt.Errorf("--service is required")
			}

			var manifests []deploy.Manifest
			if file != "" {
				var err error
				manifests, err = manifestio.LoadFile(file)
				if err != nil {
					return err
				}
			}

			resp, err := client.Deploy(ctx, httpapi.DeployRequest{
				Service:   service,
				Namespace: namespace,
				Manifests: manifests,
				Strategy:  strategy,
			})
			if err != nil {
				return err
			}

			return printDeployResponse(resp)
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a YAML manifest file (multi-document supported)")
	cmd.Flags().StringVarP(&service, "service", "s", "", "service name (required)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "target namespace")
	cmd.Flags().StringVar(&strategy, "strategy", "", "rollout strategy: direct, canary, blue_green (default: memory-informed auto-select)")

	return cmd
}

func printDeployResponse(resp httpapi.DeployResponse) error {
	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(body))
	if resp.Status == string(deploy.StatusFailed) {
		return fmt.Errorf("deploy failed: %s", resp.Error)
	}
	return nil
}
