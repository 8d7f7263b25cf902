package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/54b3r/resumeai-go/internal/ingestion"
	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/rag"
)

// handleIngestDir handles POST /api/ingest/directory: index every supported
// file of a server-side directory under the configured ingest root.
func (s *Server) handleIngestDir(w http.ResponseWriter, r *http.Request) {
	if s.cfg.IngestRoot == "" {
		writeError(w, r, http.StatusForbidden, "directory ingestion is disabled")
		return
	}

	var req ingestDirRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}
	if filepath.IsAbs(req.Dir) {
		writeError(w, r, http.StatusBadRequest, "dir must be relative to the ingest root")
		return
	}
	dir, err := ingestion.ConfineToDir(s.cfg.IngestRoot, filepath.Join(s.cfg.IngestRoot, req.Dir))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "dir must stay inside the ingest root")
		return
	}

	ctx := r.Context()
	log := logging.FromContext(ctx).With(slog.String("session_id", req.SessionID))

	ag, err := s.rt.Session(req.SessionID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer func() { _ = ag.Close() }()

	report, err := s.pipeline.IngestDir(ctx, ag, req.SessionID, dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		writeError(w, r, http.StatusNotFound, "directory not found")
		return
	case errors.Is(err, rag.ErrMissingSession):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error("ingest dir: ingestion failed", slog.String("dir", dir), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "directory ingestion failed")
		return
	}

	failed := report.Failed()
	s.metrics.uploadFilesTotal.WithLabelValues("ok").Add(float64(len(report.Files) - len(failed)))
	s.metrics.uploadFilesTotal.WithLabelValues("failed").Add(float64(len(failed)))
	s.metrics.chunksIndexedTotal.Add(float64(report.ChunksIndexed))

	log.Info("ingest dir: indexed",
		slog.String("dir", dir),
		slog.Int("files", report.FilesSaved),
		slog.Int("chunks", report.ChunksIndexed),
	)
	writeJSON(w, r, http.StatusOK, uploadResponse{
		SessionID:     report.SessionID,
		FilesSaved:    report.FilesSaved,
		ChunksIndexed: report.ChunksIndexed,
		Failed:        failed,
		Skipped:       report.Skipped,
	})
}
