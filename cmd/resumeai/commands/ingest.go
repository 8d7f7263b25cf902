package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/ingestion"
	"github.com/54b3r/resumeai-go/internal/logging"
)

// NewIngestCmd constructs the `resumeai ingest` command, which indexes local
// resume files for a session.
func NewIngestCmd() *cobra.Command {
	var sessionID string
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Index .txt and .pdf resumes for a session",
		Long: `Extract, chunk and index resumes into the vector store for one session.

Files given as arguments are copied under RESUMEAI_UPLOAD_ROOT/<session>
first, exactly like an HTTP upload; any unsupported file rejects the whole
batch. With --dir every .txt and .pdf directly inside the directory is indexed
in place and other entries are skipped.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: resumes)
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure, gemini (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  resumeai ingest --session acme-backend alice.pdf bob.txt
  resumeai ingest --session acme-backend --dir ./resumes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			if dir == "" && len(args) == 0 {
				return fmt.Errorf("ingest: pass files or --dir")
			}
			if dir != "" && len(args) > 0 {
				return fmt.Errorf("ingest: files and --dir are mutually exclusive")
			}

			app, err := buildRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer app.Close()

			ag, err := app.runtime.Session(sessionID)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = ag.Close() }()

			var report *ingestion.Report
			if dir != "" {
				report, err = app.pipeline.IngestDir(ctx, ag, sessionID, dir)
			} else {
				uploads, closeFiles, oerr := openUploads(args)
				if oerr != nil {
					return fmt.Errorf("ingest: %w", oerr)
				}
				defer closeFiles()
				report, err = app.pipeline.Ingest(ctx, ag, sessionID, uploads)
			}
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			printReport(cmd.OutOrStdout(), report)
			log.Info("ingestion complete",
				slog.Int("files_saved", report.FilesSaved),
				slog.Int("chunks_indexed", report.ChunksIndexed),
			)
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("ingest: %d of %d files failed", len(failed), len(report.Files))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id the resumes belong to (required)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of resumes to index in place")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

// openUploads opens every path for reading. The returned func closes them.
func openUploads(paths []string) ([]ingestion.Upload, func(), error) {
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	uploads := make([]ingestion.Upload, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p) //nolint:gosec // user-supplied CLI path
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		uploads = append(uploads, ingestion.Upload{Name: p, Body: f})
	}
	return uploads, closeAll, nil
}

func printReport(w io.Writer, r *ingestion.Report) {
	for _, f := range r.Files {
		if f.Error != "" {
			fmt.Fprintf(w, "FAILED  %s: %s\n", f.Name, f.Error)
			continue
		}
		fmt.Fprintf(w, "ok      %s (%d chunks)\n", f.Name, f.Chunks)
	}
	for _, name := range r.Skipped {
		fmt.Fprintf(w, "skipped %s\n", name)
	}
	fmt.Fprintf(w, "session %s: %d files, %d chunks indexed\n", r.SessionID, r.FilesSaved, r.ChunksIndexed)
}
