package main

import (
	"github.com/spf13/cobra"

	"github.com/mindstorm-criteria-engine/internal/mcp"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the engine tools to an MCP client over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := withShutdownSignals(cmd.Context(), a.logger)
			defer cancel()

			server := mcp.NewServer(a.config.GetConfig().MCP, a.service, a.logger)
			return server.Run(ctx)
		},
	}
}
