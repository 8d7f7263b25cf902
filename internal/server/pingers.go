package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/provider"
)

// LLMPinger probes the chat backend for GET /api/ready. It prefers the
// provider's zero-cost health check and otherwise sends a one-word prompt.
type LLMPinger struct {
	model       model.BaseChatModel
	healthCheck provider.HealthCheckConfig
	name        string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(m model.BaseChatModel, hc provider.HealthCheckConfig, name string) *LLMPinger {
	return &LLMPinger{model: m, healthCheck: hc, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping probes the LLM backend.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}

	logging.FromContext(ctx).Debug("pinger: no zero-cost health check, sending a generate probe")
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// storePinger is satisfied by rag.QdrantStore.
type storePinger interface {
	Ping(ctx context.Context) error
}

// QdrantPinger probes the vector store through its native HealthCheck RPC.
type QdrantPinger struct {
	store storePinger
}

// NewQdrantPinger constructs a QdrantPinger for the given store.
func NewQdrantPinger(store storePinger) *QdrantPinger {
	return &QdrantPinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping returns nil if Qdrant is reachable.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// HistoryPinger probes the SQLite history store with a cheap read.
type HistoryPinger struct {
	history HistoryReader
}

// NewHistoryPinger constructs a HistoryPinger.
func NewHistoryPinger(h HistoryReader) *HistoryPinger {
	return &HistoryPinger{history: h}
}

// Name returns the dependency label used in readiness responses.
func (p *HistoryPinger) Name() string { return "history" }

// Ping reads the history of a session that never exists.
func (p *HistoryPinger) Ping(ctx context.Context) error {
	if _, err := p.history.History(ctx, "__readiness__"); err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	return nil
}
