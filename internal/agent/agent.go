// Package agent provides the per-session facade over the question answering
// chain, the document store and the history store. A Runtime holds the
// process-wide collaborators; Session binds them to one session id.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/54b3r/resumeai-go/internal/chain"
	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/rag"
)

var (
	// ErrSessionMismatch is returned by AddDocuments when a chunk is already
	// tagged with a different session.
	ErrSessionMismatch = errors.New("agent: chunk belongs to a different session")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("agent: closed")

	// ErrInvalidSession is returned for an empty session id.
	ErrInvalidSession = errors.New("agent: session id must not be empty")
)

// Asker answers questions for a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string, k int) (*chain.Result, error)
}

// Documents indexes and purges session-scoped chunks.
type Documents interface {
	Add(ctx context.Context, chunks []rag.Chunk) ([]string, error)
	Purge(ctx context.Context, filter rag.Filter) error
}

// Resetter clears the conversation history of a session.
type Resetter interface {
	Reset(ctx context.Context, sessionID string) error
}

// Runtime holds the collaborators shared by every session.
type Runtime struct {
	// Chain answers questions.
	Chain Asker

	// Documents is the session-scoped document store.
	Documents Documents

	// History is the conversation store.
	History Resetter

	// DefaultK is used when Ask is called with k <= 0. Zero defers to the
	// chain's own default.
	DefaultK int

	// PurgeOnReset makes ResetSession also delete the session's documents.
	PurgeOnReset bool
}

// Agent is bound to one session. It is safe for concurrent use and holds no
// lock across store or model calls.
type Agent struct {
	rt        *Runtime
	sessionID string
	closers   []io.Closer

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Session returns a facade bound to sessionID. closers are released exactly
// once by Close; pass the connections the facade should own, or none when
// the Runtime's resources outlive the facade.
func (rt *Runtime) Session(sessionID string, closers ...io.Closer) (*Agent, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	if rt.Chain == nil || rt.Documents == nil || rt.History == nil {
		return nil, fmt.Errorf("agent: runtime is missing a collaborator")
	}
	return &Agent{rt: rt, sessionID: sessionID, closers: closers}, nil
}

// SessionID returns the bound session.
func (a *Agent) SessionID() string { return a.sessionID }

// Ask answers question from the session's documents and history. k <= 0
// selects the runtime default.
func (a *Agent) Ask(ctx context.Context, question string, k int) (*chain.Result, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	if k <= 0 {
		k = a.rt.DefaultK
	}
	return a.rt.Chain.Ask(logging.WithSession(ctx, a.sessionID), a.sessionID, question, k)
}

// AddDocuments indexes chunks for the bound session. Chunks without a
// session are stamped with it; a chunk tagged with another session fails the
// whole call before anything is indexed. The caller's chunks are not
// modified.
func (a *Agent) AddDocuments(ctx context.Context, chunks []rag.Chunk) ([]string, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	stamped := make([]rag.Chunk, len(chunks))
	for i, c := range chunks {
		switch c.Metadata.SessionID {
		case "", a.sessionID:
		default:
			return nil, fmt.Errorf("%w: chunk %d tagged %q, facade bound to %q",
				ErrSessionMismatch, i, c.Metadata.SessionID, a.sessionID)
		}
		m := c.Metadata.Clone()
		m.SessionID = a.sessionID
		stamped[i] = rag.Chunk{Text: c.Text, Metadata: m}
	}
	return a.rt.Documents.Add(ctx, stamped)
}

// ResetSession clears the session's history, and its documents when the
// runtime purges on reset.
func (a *Agent) ResetSession(ctx context.Context) error {
	return a.reset(ctx, a.rt.PurgeOnReset)
}

// ResetSessionPurge clears the session's history and always deletes its
// indexed documents.
func (a *Agent) ResetSessionPurge(ctx context.Context) error {
	return a.reset(ctx, true)
}

func (a *Agent) reset(ctx context.Context, purge bool) error {
	if a.closed.Load() {
		return ErrClosed
	}

	ctx = logging.WithSession(ctx, a.sessionID)
	if err := a.rt.History.Reset(ctx, a.sessionID); err != nil {
		return fmt.Errorf("agent: reset history: %w", err)
	}
	if purge {
		if err := a.rt.Documents.Purge(ctx, rag.Filter{SessionID: a.sessionID}); err != nil {
			return fmt.Errorf("agent: purge documents: %w", err)
		}
	}
	logging.FromContext(ctx).Info("agent: session reset",
		slog.Bool("documents_purged", purge),
	)
	return nil
}

// Close releases the owned resources. Calls after the first return the
// first call's result without doing anything.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)

		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
