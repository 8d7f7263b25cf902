package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/logging"
)

// NewResetCmd constructs the `resumeai reset` command.
func NewResetCmd() *cobra.Command {
	var sessionID string
	var purgeDocs bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a session's conversation history",
		Long: `Clear the conversation history of a session. Indexed resumes are kept
unless --purge-docs is given or RESUMEAI_PURGE_ON_RESET=true.

Examples:
  resumeai reset --session acme-backend
  resumeai reset --session acme-backend --purge-docs`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			app, err := buildRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			defer app.Close()

			ag, err := app.runtime.Session(sessionID)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			defer func() { _ = ag.Close() }()

			if purgeDocs {
				err = ag.ResetSessionPurge(ctx)
			} else {
				err = ag.ResetSession(ctx)
			}
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s reset\n", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to reset (required)")
	cmd.Flags().BoolVar(&purgeDocs, "purge-docs", false, "Also delete the session's indexed resumes")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}
