package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/54b3r/resumeai-go/internal/logging"
)

// maxChatBody caps the JSON body of POST /api/chat.
const maxChatBody = 64 << 10

// handleChat handles POST /api/chat. Questions of one session are answered
// one at a time.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, r, http.StatusBadRequest, "message is required")
		return
	}
	if req.K < 0 {
		writeError(w, r, http.StatusBadRequest, "k must not be negative")
		return
	}

	log := logging.FromContext(r.Context()).With(slog.String("session_id", req.SessionID))

	s.metrics.chatInFlight.Inc()
	defer s.metrics.chatInFlight.Dec()
	start := time.Now()

	// The deadline covers the wait for the session as well as the answer.
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	unlock, err := s.locks.lock(ctx, req.SessionID)
	if err != nil {
		s.observeChat("timeout", start)
		log.Warn("chat: gave up waiting for session", slog.Any("error", err))
		writeError(w, r, http.StatusServiceUnavailable, "session is busy with another question")
		return
	}
	defer unlock()

	ag, err := s.rt.Session(req.SessionID)
	if err != nil {
		s.observeChat("error", start)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer func() { _ = ag.Close() }()

	res, err := ag.Ask(ctx, req.Message, req.K)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.observeChat(outcome, start)
		log.Error("chat: question failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	resp := chatResponse{SessionID: req.SessionID, Answer: res.Answer, Sources: res.Sources}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if res.PersistErr != nil {
		resp.Warning = "answer was not saved to the conversation history"
	}
	s.observeChat("ok", start)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) observeChat(outcome string, start time.Time) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
