// Package mcp exposes the per-session question answering operations as Model
// Context Protocol tools served over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/resumeai-go/internal/agent"
	"github.com/54b3r/resumeai-go/internal/store"
	"github.com/54b3r/resumeai-go/internal/version"
)

// HistoryReader lists the turns of a session.
type HistoryReader interface {
	History(ctx context.Context, sessionID string) ([]store.Turn, error)
}

// Server is the MCP server for resumeai.
type Server struct {
	rt      *agent.Runtime
	history HistoryReader
	server  *mcp.Server
}

// NewServer registers the ask, reset_session and history tools.
func NewServer(rt *agent.Runtime, history HistoryReader) (*Server, error) {
	if rt == nil || history == nil {
		return nil, errors.New("mcp: runtime and history must not be nil")
	}
	s := &Server{
		rt:      rt,
		history: history,
		server:  mcp.NewServer(&mcp.Implementation{Name: "resumeai", Version: version.Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
