package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/mcp"
)

// NewMCPCmd constructs the `resumeai mcp` command, which serves the ask,
// reset_session and history tools to an MCP client over stdio.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve resumeai tools over the Model Context Protocol (stdio)",
		Long: `Run an MCP server on stdin/stdout exposing:

  ask            answer a question about a session's resumes
  reset_session  clear a session's history, optionally purging its resumes
  history        list a session's conversation turns

Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			app, err := buildRuntime(ctx, log, runtimeOptions{chat: true})
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer app.Close()

			srv, err := mcp.NewServer(app.runtime, app.history)
			if err != nil {
				return err
			}
			log.Info("mcp: serving on stdio")
			return srv.Run(ctx)
		},
	}
}
