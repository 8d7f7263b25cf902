package server

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/54b3r/resumeai-go/internal/ingestion"
	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/rag"
)

// uploadMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const uploadMemory = 8 << 20

// handleUpload handles POST /api/upload: a multipart form with a session_id
// field and one or more "files" parts.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, r, http.StatusBadRequest, "no files uploaded")
		return
	}

	ctx := r.Context()
	log := logging.FromContext(ctx).With(slog.String("session_id", sessionID))

	uploads := make([]ingestion.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(uploads)
			writeError(w, r, http.StatusBadRequest, "cannot read uploaded file "+fh.Filename)
			return
		}
		uploads = append(uploads, ingestion.Upload{Name: fh.Filename, Body: f})
	}
	defer closeAll(uploads)

	ag, err := s.rt.Session(sessionID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer func() { _ = ag.Close() }()

	report, err := s.pipeline.Ingest(ctx, ag, sessionID, uploads)
	switch {
	case errors.Is(err, ingestion.ErrUnsupportedFileType):
		s.metrics.uploadFilesTotal.WithLabelValues("rejected").Add(float64(len(uploads)))
		writeError(w, r, http.StatusUnsupportedMediaType, "only .txt and .pdf files are supported")
		return
	case errors.Is(err, ingestion.ErrNoFiles), errors.Is(err, rag.ErrMissingSession):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error("upload: ingestion failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	failed := report.Failed()
	s.metrics.uploadFilesTotal.WithLabelValues("ok").Add(float64(len(report.Files) - len(failed)))
	s.metrics.uploadFilesTotal.WithLabelValues("failed").Add(float64(len(failed)))
	s.metrics.chunksIndexedTotal.Add(float64(report.ChunksIndexed))

	writeJSON(w, r, http.StatusOK, uploadResponse{
		SessionID:     report.SessionID,
		FilesSaved:    report.FilesSaved,
		ChunksIndexed: report.ChunksIndexed,
		Failed:        failed,
	})
}

func closeAll(uploads []ingestion.Upload) {
	for _, u := range uploads {
		if f, ok := u.Body.(multipart.File); ok {
			_ = f.Close()
		}
	}
}
