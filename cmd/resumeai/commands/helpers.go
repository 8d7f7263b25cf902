package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/resumeai-go/internal/agent"
	"github.com/54b3r/resumeai-go/internal/chain"
	"github.com/54b3r/resumeai-go/internal/chunker"
	"github.com/54b3r/resumeai-go/internal/config"
	"github.com/54b3r/resumeai-go/internal/embedder"
	"github.com/54b3r/resumeai-go/internal/ingestion"
	"github.com/54b3r/resumeai-go/internal/provider"
	"github.com/54b3r/resumeai-go/internal/rag"
	"github.com/54b3r/resumeai-go/internal/store"
	"github.com/54b3r/resumeai-go/internal/tracing"
)

// errNoChatModel is returned by commands that never ask a question if
// something tries to.
var errNoChatModel = errors.New("no chat model configured for this command")

// runtimeOptions selects the optional parts of the runtime.
type runtimeOptions struct {
	// chat builds the LLM provider and the question answering chain.
	chat bool
	// observer receives per-stage chain timings.
	observer chain.Observer
}

// appRuntime is every collaborator a command may need, wired once.
type appRuntime struct {
	settings    *config.Settings
	runtime     *agent.Runtime
	history     *store.SQLiteStore
	pipeline    *ingestion.Pipeline
	chatModel   model.BaseChatModel
	providerCfg *provider.Config
	// qdrant is nil when the memory store is selected.
	qdrant  *rag.QdrantStore
	closers []io.Closer
	flush   func()
}

// Close flushes traces and releases stores in reverse order of opening.
func (a *appRuntime) Close() {
	if a.flush != nil {
		a.flush()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// buildRuntime wires settings, history store, vector store, embedder, chain
// and ingestion pipeline. On error everything opened so far is closed.
func buildRuntime(ctx context.Context, log *slog.Logger, opts runtimeOptions) (_ *appRuntime, err error) {
	settings, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	app := &appRuntime{settings: settings}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if opts.chat {
		app.flush = setupTracing(log)
	}

	history, err := openHistory(settings, log)
	if err != nil {
		return nil, err
	}
	app.history = history
	app.closers = append(app.closers, history)

	docs, err := openDocStore(ctx, settings, app, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, docs)

	var asker agent.Asker = unavailableAsker{}
	if opts.chat {
		chatModel, providerCfg, perr := provider.NewFromEnv(ctx)
		if perr != nil {
			return nil, fmt.Errorf("failed to initialise model provider: %w", perr)
		}
		app.chatModel, app.providerCfg = chatModel, providerCfg
		log.Info("provider initialised",
			slog.String("provider", string(providerCfg.Backend)),
			slog.String("model", providerCfg.ModelName()),
		)

		gen, gerr := chain.CompileGenerator(ctx, chatModel)
		if gerr != nil {
			return nil, fmt.Errorf("failed to compile generator: %w", gerr)
		}
		c, cerr := chain.New(&chain.Config{
			Retriever:        docs,
			History:          history,
			Generator:        gen,
			DefaultK:         settings.TopK,
			MaxContextTokens: settings.MaxContextTokens,
			Observer:         opts.observer,
		})
		if cerr != nil {
			return nil, fmt.Errorf("failed to initialise chain: %w", cerr)
		}
		asker = c
	}

	app.runtime = &agent.Runtime{
		Chain:        asker,
		Documents:    docs,
		History:      history,
		DefaultK:     settings.TopK,
		PurgeOnReset: settings.PurgeOnReset,
	}

	splitter, err := chunker.New(settings.ChunkSize, settings.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if app.pipeline, err = ingestion.NewPipeline(&ingestion.Config{
		Splitter:   splitter,
		UploadRoot: settings.UploadRoot,
	}); err != nil {
		return nil, err
	}
	return app, nil
}

// openHistory opens the SQLite history store at RESUMEAI_HISTORY_DB or the
// default path under the home directory.
func openHistory(settings *config.Settings, log *slog.Logger) (*store.SQLiteStore, error) {
	path := settings.HistoryDB
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}
	hs, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: failed to open %s: %w", path, err)
	}
	log.Info("history: store opened", slog.String("path", path))
	return hs, nil
}

// openDocStore builds the embedder and the selected vector backend.
func openDocStore(ctx context.Context, settings *config.Settings, app *appRuntime, log *slog.Logger) (*rag.DocStore, error) {
	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	var vs rag.VectorStore
	switch settings.VectorStore {
	case config.VectorStoreMemory:
		log.Warn("rag: using the in-memory vector store, documents are lost on exit")
		vs = rag.NewMemoryStore()
	default:
		q, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       settings.QdrantHost,
			Port:       settings.QdrantPort,
			Collection: settings.QdrantCollection,
			VectorSize: uint64(embedder.DefaultDimensions(embedder.Backend())), //nolint:gosec // dimensions are bounded
			APIKey:     settings.QdrantAPIKey,
			UseTLS:     settings.QdrantTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", settings.QdrantHost, settings.QdrantPort, err)
		}
		log.Info("qdrant store ready",
			slog.String("host", settings.QdrantHost),
			slog.Int("port", settings.QdrantPort),
			slog.String("collection", settings.QdrantCollection),
		)
		app.qdrant = q
		vs = q
	}
	return rag.NewDocStore(emb, vs)
}

// setupTracing installs the Langfuse handler when its keys are set.
func setupTracing(log *slog.Logger) func() {
	flush, enabled := tracing.Install(tracing.ConfigFromEnv())
	if enabled {
		log.Info("langfuse tracing enabled")
	} else {
		log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
	}
	return flush
}

// unavailableAsker stands in for the chain in commands that only index or
// reset.
type unavailableAsker struct{}

func (unavailableAsker) Ask(context.Context, string, string, int) (*chain.Result, error) {
	return nil, errNoChatModel
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
