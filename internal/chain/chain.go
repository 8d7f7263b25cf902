// Package chain implements the retrieval-augmented question answering flow:
// retrieve session-scoped chunks, format them as a context block, replay the
// session history, render the chat template, generate once and persist the
// turn. Any failure before generation completes aborts the question; a
// failure to persist the turn is reported on the Result instead.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/resumeai-go/internal/budget"
	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/rag"
	"github.com/54b3r/resumeai-go/internal/store"
)

// DefaultK is the number of chunks retrieved when the caller passes k <= 0.
const DefaultK = 5

var (
	// ErrRetrievalFailed is returned when the document store or the history
	// store cannot be read. No answer is produced.
	ErrRetrievalFailed = errors.New("chain: retrieval failed")

	// ErrGenerationFailed is returned when the model errors, times out or
	// returns no message.
	ErrGenerationFailed = errors.New("chain: generation failed")

	// ErrHistoryPersistFailed marks a turn that was answered but not recorded.
	// It is only ever reported through Result.PersistErr.
	ErrHistoryPersistFailed = errors.New("chain: history persist failed")

	// ErrInvalidRequest is returned for an empty session or question.
	ErrInvalidRequest = errors.New("chain: session_id and question are required")
)

// History is the subset of store.HistoryStore the chain reads and appends.
type History interface {
	History(ctx context.Context, sessionID string) ([]store.Turn, error)
	Append(ctx context.Context, sessionID string, role store.Role, content string) error
}

// Observer receives the duration and outcome of each stage of a question.
// Stage names are "retrieve", "history", "generate" and "persist".
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
}

// Config holds the collaborators of a Chain.
type Config struct {
	// Retriever runs session-filtered similarity search.
	Retriever rag.Retriever

	// History loads and records conversation turns.
	History History

	// Generator produces the answer from the rendered prompt.
	Generator Generator

	// DefaultK is the number of chunks retrieved when Ask is called with
	// k <= 0. Defaults to DefaultK if zero.
	DefaultK int

	// MaxContextTokens is the estimated prompt budget. History is trimmed
	// oldest-first to fit. Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int

	// Observer is optional.
	Observer Observer
}

// Result is the outcome of a successful question.
type Result struct {
	// Answer is the generated reply.
	Answer string

	// Sources lists the distinct source names of the chunks shown to the model.
	Sources []string

	// PersistErr is non-nil when the answer was produced but the turn could
	// not be recorded. It wraps ErrHistoryPersistFailed.
	PersistErr error
}

// Chain is safe for concurrent use; every call carries its own k.
type Chain struct {
	retriever rag.Retriever
	history   History
	generator Generator
	template  prompt.ChatTemplate
	defaultK  int
	maxTokens int
	observer  Observer
}

// New constructs a Chain from cfg.
func New(cfg *Config) (*Chain, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("chain: Retriever must not be nil")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("chain: History must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("chain: Generator must not be nil")
	}
	k := cfg.DefaultK
	if k <= 0 {
		k = DefaultK
	}
	maxTokens := cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}
	return &Chain{
		retriever: cfg.Retriever,
		history:   cfg.History,
		generator: cfg.Generator,
		template:  newTemplate(),
		defaultK:  k,
		maxTokens: maxTokens,
		observer:  cfg.Observer,
	}, nil
}

// DefaultK returns the k used when Ask is called with k <= 0.
func (c *Chain) DefaultK() int { return c.defaultK }

// Ask answers question from the documents and history of sessionID.
// k <= 0 selects the configured default.
func (c *Chain) Ask(ctx context.Context, sessionID, question string, k int) (*Result, error) {
	if sessionID == "" || question == "" {
		return nil, ErrInvalidRequest
	}
	if k <= 0 {
		k = c.defaultK
	}
	// The caller tags the logger with the session.
	log := logging.FromContext(ctx)

	start := time.Now()
	results, err := c.retriever.Search(ctx, question, rag.Filter{SessionID: sessionID}, k)
	c.observe("retrieve", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}
	contextBlock := FormatContext(results)

	start = time.Now()
	turns, err := c.history.History(ctx, sessionID)
	c.observe("history", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %w", ErrRetrievalFailed, err)
	}

	messages, err := c.render(ctx, log, question, contextBlock, toMessages(turns))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	reply, err := c.generator.Generate(ctx, messages)
	if err == nil && reply == nil {
		err = errors.New("model returned no message")
	}
	c.observe("generate", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	res := &Result{Answer: reply.Content, Sources: Sources(results)}

	// The answer exists now; a caller hanging up must not lose the turn.
	persistCtx := context.WithoutCancel(ctx)
	start = time.Now()
	res.PersistErr = c.persist(persistCtx, sessionID, question, reply.Content)
	c.observe("persist", start, res.PersistErr)
	if res.PersistErr != nil {
		log.Warn("chain: turn not recorded", slog.Any("error", res.PersistErr))
	}

	log.Debug("chain: answered",
		slog.Int("k", k),
		slog.Int("chunks", len(results)),
		slog.Int("history_turns", len(turns)),
	)
	return res, nil
}

// render formats the template once without history to size the fixed part,
// trims history to the budget, then renders the final message list.
func (c *Chain) render(ctx context.Context, log *slog.Logger, question, contextBlock string, history []*schema.Message) ([]*schema.Message, error) {
	vars := map[string]any{
		varQuestion: question,
		varContext:  contextBlock,
	}
	fixed, err := c.template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("chain: render prompt: %w", err)
	}

	before := len(history)
	history = budget.TrimHistory(fixed, history, c.maxTokens)
	if dropped := before - len(history); dropped > 0 {
		log.Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(history)),
			slog.Int("max_tokens", c.maxTokens),
		)
	}
	if len(history) == 0 {
		return fixed, nil
	}

	vars[varHistory] = history
	messages, err := c.template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("chain: render prompt: %w", err)
	}
	return messages, nil
}

// persist appends the user turn then the assistant turn. If the user turn
// fails the assistant turn is not written.
func (c *Chain) persist(ctx context.Context, sessionID, question, answer string) error {
	if err := c.history.Append(ctx, sessionID, store.RoleUser, question); err != nil {
		return fmt.Errorf("%w: user turn: %w", ErrHistoryPersistFailed, err)
	}
	if err := c.history.Append(ctx, sessionID, store.RoleAssistant, answer); err != nil {
		return fmt.Errorf("%w: assistant turn: %w", ErrHistoryPersistFailed, err)
	}
	return nil
}

func (c *Chain) observe(stage string, start time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveStage(stage, time.Since(start), err)
	}
}

func toMessages(turns []store.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case store.RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case store.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		}
	}
	return msgs
}
