package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/logging"
)

// NewAskCmd constructs the `resumeai ask` command, which answers one question
// from a session's indexed resumes and prints the answer with its sources.
func NewAskCmd() *cobra.Command {
	var sessionID string
	var k int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a session's resumes",
		Long: `Ask a natural language question about the resumes indexed for a session.

The question and answer are appended to the session's history, so follow-up
questions can refer to earlier turns.

Examples:
  resumeai ask --session acme-backend "Which candidates have production Go experience?"
  resumeai ask --session acme-backend --k 8 "Compare their Kubernetes background"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			app, err := buildRuntime(ctx, log, runtimeOptions{chat: true})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer app.Close()

			ag, err := app.runtime.Session(sessionID)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = ag.Close() }()

			res, err := ag.Ask(ctx, strings.Join(args, " "), k)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			if len(res.Sources) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nSources: %s\n", strings.Join(res.Sources, ", "))
			}
			if res.PersistErr != nil {
				fmt.Fprintf(os.Stderr, "warning: answer was not saved to history: %v\n", res.PersistErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id whose resumes are searched (required)")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of resume chunks to retrieve (default: RAG_TOP_K)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}
