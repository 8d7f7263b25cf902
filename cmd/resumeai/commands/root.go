// Package commands defines all Cobra CLI commands for the resumeai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/audit"
	"github.com/54b3r/resumeai-go/internal/config"
	"github.com/54b3r/resumeai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "resumeai",
		Short: "Ask questions about a session's uploaded resumes",
		Long: `resumeai indexes candidate resumes (.txt and .pdf) per session and answers
recruiter questions about them with a retrieval-augmented LLM chain.

Every session has its own documents and conversation history. The chat
backend is selected via MODEL_PROVIDER (ollama, openai, azure, gemini, ark)
or a YAML config file (~/.resumeai/config.yaml).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.resumeai/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewIngestCmd(),
		NewResetCmd(),
		NewHistoryCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return root
}
