package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/54b3r/resumeai-go/internal/logging"
)

// handleGetHistory handles GET /api/sessions/{id}/history.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session id is required")
		return
	}

	turns, err := s.history.History(r.Context(), sessionID)
	if err != nil {
		logging.FromContext(r.Context()).Error("history: load failed",
			slog.String("session_id", sessionID), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	resp := historyResponse{SessionID: sessionID, Turns: make([]turnJSON, 0, len(turns))}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, turnJSON{
			Seq:       t.Seq,
			Role:      string(t.Role),
			Content:   t.Content,
			CreatedAt: t.CreatedAt.UTC(),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleResetHistory handles DELETE /api/sessions/{id}/history. With
// ?purge_documents=true the session's indexed documents are deleted too.
func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session id is required")
		return
	}
	purge := false
	if v := r.URL.Query().Get("purge_documents"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "purge_documents must be a boolean")
			return
		}
		purge = b
	}

	ctx := r.Context()
	log := logging.FromContext(ctx).With(slog.String("session_id", sessionID))

	unlock, err := s.locks.lock(ctx, sessionID)
	if err != nil {
		log.Warn("history: gave up waiting for session", slog.Any("error", err))
		writeError(w, r, http.StatusServiceUnavailable, "session is busy")
		return
	}
	defer unlock()

	ag, err := s.rt.Session(sessionID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer func() { _ = ag.Close() }()

	if purge {
		err = ag.ResetSessionPurge(ctx)
	} else {
		err = ag.ResetSession(ctx)
	}
	if err != nil {
		log.Error("history: reset failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.resetsTotal.WithLabelValues(strconv.FormatBool(purge || s.rt.PurgeOnReset)).Inc()
	w.WriteHeader(http.StatusNoContent)
}
