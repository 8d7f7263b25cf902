package mcp

import (
	"context"

	"github.com/54b3r/resumeai-go/internal/chain"
	"github.com/54b3r/resumeai-go/internal/rag"
	"github.com/54b3r/resumeai-go/internal/store"
)

// mockAsker is a mock implementation of agent.Asker.
type mockAsker struct {
	result   *chain.Result
	err      error
	question string
	k        int
}

func (m *mockAsker) Ask(_ context.Context, _, question string, k int) (*chain.Result, error) {
	m.question, m.k = question, k
	return m.result, m.err
}

// mockDocuments is a mock implementation of agent.Documents.
type mockDocuments struct {
	purged []string
}

func (m *mockDocuments) Add(_ context.Context, chunks []rag.Chunk) ([]string, error) {
	return make([]string, len(chunks)), nil
}

func (m *mockDocuments) Purge(_ context.Context, f rag.Filter) error {
	m.purged = append(m.purged, f.SessionID)
	return nil
}

// mockHistory implements both agent.Resetter and HistoryReader.
type mockHistory struct {
	turns []store.Turn
	reset []string
	err   error
}

func (m *mockHistory) Reset(_ context.Context, sessionID string) error {
	m.reset = append(m.reset, sessionID)
	return m.err
}

func (m *mockHistory) History(_ context.Context, _ string) ([]store.Turn, error) {
	return m.turns, m.err
}
