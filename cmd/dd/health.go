package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/server"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the dealdesk service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		result := map[string]string{}
		status, err := dealClient.Health(ctx)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		result["http"] = status

		if addr, _ := cmd.Flags().GetString("grpc"); addr != "" {
			_, tok := resolveConnection(cmd, clientCfg)
			gs, err := client.GRPCHealth(ctx, addr, tok, server.ServiceName)
			if err != nil {
				return fmt.Errorf("checking gRPC health: %w", err)
			}
			result["grpc"] = gs
		}

		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "HTTP: %s\n", renderHealth(result["http"], "ok"))
			if gs, ok := result["grpc"]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "gRPC: %s\n", renderHealth(gs, "SERVING"))
			}
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		if gs, ok := result["grpc"]; ok && gs != "SERVING" {
			return fmt.Errorf("gRPC unhealthy: %s", gs)
		}
		return nil
	},
}

func renderHealth(got, want string) string {
	if got == want {
		return ui.RenderSuccess(got)
	}
	return ui.RenderError(got)
}

func init() {
	healthCmd.Flags().String("grpc", "", "also check the gRPC health service at this address")
}
