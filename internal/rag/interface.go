// Package rag defines the document model and the ports used for
// retrieval-augmented generation: embedding, session-filtered vector storage
// and the DocStore adapter that ties the two together.
// Concrete backends (Qdrant, in-memory) satisfy VectorStore so the chain and
// agent layers never depend on a specific database.
package rag

import (
	"context"
	"errors"
	"maps"
)

// Metadata keys stored alongside every chunk.
const (
	// KeySource is the originating file name of a chunk.
	KeySource = "source"
	// KeySessionID scopes a chunk to one session.
	KeySessionID = "session_id"
	// KeyText holds the chunk text in backend payloads.
	KeyText = "text"
	// KeyFile is a legacy alias for the source name, read as a fallback.
	KeyFile = "file"
)

var (
	// ErrStoreUnavailable is returned when the vector backend cannot be reached
	// or rejects an operation.
	ErrStoreUnavailable = errors.New("rag: vector store unavailable")

	// ErrMissingSession is returned when a chunk or filter has no session_id.
	ErrMissingSession = errors.New("rag: session_id is required")

	// ErrEmbeddingFailed is returned when the embedder fails or returns a
	// result that does not line up with its input.
	ErrEmbeddingFailed = errors.New("rag: embedding failed")

	// ErrInvalidK is returned when a search asks for zero or fewer results.
	ErrInvalidK = errors.New("rag: k must be positive")

	// ErrEmptyChunk is returned when a chunk with no text is added.
	ErrEmptyChunk = errors.New("rag: chunk text is empty")
)

// Metadata is the key/value information attached to a chunk. Source and
// SessionID are the documented keys; Extra carries caller extensions such as
// chunk_index.
type Metadata struct {
	// Source is the originating file name.
	Source string

	// SessionID is the session this chunk belongs to.
	SessionID string

	// Extra holds any additional string metadata.
	Extra map[string]string
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	out := Metadata{Source: m.Source, SessionID: m.SessionID}
	if m.Extra != nil {
		out.Extra = maps.Clone(m.Extra)
	}
	return out
}

// Chunk is a unit of indexed text. Chunks are treated as immutable values;
// code that needs to change metadata works on a copy.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Metadata is the attached key/value information.
	Metadata Metadata
}

// IndexedDocument is a chunk as persisted in a vector backend.
type IndexedDocument struct {
	// ID is the deterministic point identifier.
	ID string

	// Chunk is the stored text and metadata.
	Chunk Chunk

	// Embedding is the dense vector for Chunk.Text.
	Embedding []float32
}

// SearchResult is a chunk returned by a similarity search.
type SearchResult struct {
	// ID is the identifier of the matched point.
	ID string

	// Chunk is the matched text and metadata.
	Chunk Chunk

	// Score is the cosine similarity to the query; higher is closer.
	Score float32
}

// Filter restricts store operations to a single session.
type Filter struct {
	// SessionID must equal the chunk's session_id.
	SessionID string
}

// Validate reports ErrMissingSession when the filter is empty.
func (f Filter) Validate() error {
	if f.SessionID == "" {
		return ErrMissingSession
	}
	return nil
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryEmbedder is implemented by embedders whose models embed search
// queries differently from the documents they are matched against.
// DocStore.Search prefers it over Embed when available.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the backend port for persisting and searching embeddings.
// Implementations must be safe to call from multiple goroutines and must
// wrap transport failures with ErrStoreUnavailable.
type VectorStore interface {
	// Upsert stores or replaces a batch of documents.
	Upsert(ctx context.Context, docs []IndexedDocument) error

	// Search returns up to topK documents matching filter, most similar
	// first. The filter is applied before ranking.
	Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]SearchResult, error)

	// Existing reports which of ids are already stored.
	Existing(ctx context.Context, ids []string) (map[string]bool, error)

	// DeleteByFilter removes every document matching filter.
	DeleteByFilter(ctx context.Context, filter Filter) error

	// Close releases any resources held by the store.
	Close() error
}

// Retriever is consumed by the chain: it fetches the chunks most relevant to
// a query within one session.
type Retriever interface {
	// Search returns up to k results for query restricted to filter.
	Search(ctx context.Context, query string, filter Filter, k int) ([]SearchResult, error)
}
