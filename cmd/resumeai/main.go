// Command resumeai answers recruiter questions about uploaded resumes. It
// provides a CLI (via Cobra), an HTTP API and an MCP stdio server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/54b3r/resumeai-go/cmd/resumeai/commands"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
