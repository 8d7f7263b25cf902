package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/resumeai-go/internal/agent"
	"github.com/54b3r/resumeai-go/internal/ingestion"
	"github.com/54b3r/resumeai-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one question, retrieval through generation.
	// Defaults to 2 minutes.
	ChatTimeout time.Duration
	// MaxUploadBytes caps a whole multipart upload request. Defaults to 50 MiB.
	MaxUploadBytes int64
	// IngestRoot is the directory POST /api/ingest/directory reads from.
	// Requested directories must resolve inside it. Empty disables the
	// endpoint.
	IngestRoot string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on protected
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /api/chat, /api/upload and
	// /api/sessions. If empty, authentication is disabled.
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// HistoryReader lists the turns of a session for GET /api/sessions/{id}/history.
type HistoryReader interface {
	History(ctx context.Context, sessionID string) ([]store.Turn, error)
}

// Deps are the domain collaborators the handlers call.
type Deps struct {
	// Runtime binds per-request agent facades to a session.
	Runtime *agent.Runtime
	// Pipeline saves and indexes uploads.
	Pipeline *ingestion.Pipeline
	// History serves the history read endpoint.
	History HistoryReader
}

// Server exposes the resume question answering service over HTTP.
type Server struct {
	rt         *agent.Runtime
	pipeline   *ingestion.Pipeline
	history    HistoryReader
	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	pingers    []Pinger
	metrics    *serverMetrics
	locks      *sessionLocks
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// K overrides the number of retrieved chunks for this question.
	K int `json:"k,omitempty"`
}

// chatResponse is the JSON body returned by POST /api/chat.
type chatResponse struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	// Warning is set when the answer was produced but not recorded in history.
	Warning string `json:"warning,omitempty"`
}

// uploadResponse is the JSON body returned by POST /api/upload.
type uploadResponse struct {
	SessionID     string                 `json:"session_id"`
	FilesSaved    int                    `json:"files_saved"`
	ChunksIndexed int                    `json:"chunks_indexed"`
	Failed        []ingestion.FileResult `json:"failed,omitempty"`
	// Skipped lists unsupported files passed over in directory mode.
	Skipped []string `json:"skipped,omitempty"`
}

// ingestDirRequest is the JSON body for POST /api/ingest/directory.
type ingestDirRequest struct {
	SessionID string `json:"session_id"`
	// Dir is relative to the configured ingest root. Empty means the root.
	Dir string `json:"dir,omitempty"`
}

// turnJSON is one entry of historyResponse.
type turnJSON struct {
	Seq       int64     `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// historyResponse is the JSON body returned by GET /api/sessions/{id}/history.
type historyResponse struct {
	SessionID string     `json:"session_id"`
	Turns     []turnJSON `json:"turns"`
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}
