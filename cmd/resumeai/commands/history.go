package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/config"
	"github.com/54b3r/resumeai-go/internal/logging"
)

// NewHistoryCmd constructs the `resumeai history` command. It reads the
// SQLite store directly and needs neither a model nor a vector store.
func NewHistoryCmd() *cobra.Command {
	var sessionID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a session's conversation turns, or list sessions",
		Long: `Print the conversation history of a session, oldest first. Without
--session, list every session that has history.

Examples:
  resumeai history
  resumeai history --session acme-backend
  resumeai history --session acme-backend --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := cmd.Context()

			settings, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			hs, err := openHistory(settings, log)
			if err != nil {
				return err
			}
			defer func() { _ = hs.Close() }()

			out := cmd.OutOrStdout()
			if sessionID == "" {
				sessions, err := hs.Sessions(ctx)
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				if asJSON {
					return json.NewEncoder(out).Encode(sessions)
				}
				for _, s := range sessions {
					fmt.Fprintln(out, s)
				}
				return nil
			}

			turns, err := hs.History(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(turns)
			}
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] %s: %s\n", t.CreatedAt.Local().Format(time.DateTime), t.Role, t.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to print")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	return cmd
}
