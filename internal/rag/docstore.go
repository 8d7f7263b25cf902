package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// chunkNamespace seeds the deterministic chunk identifiers.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("resumeai/chunk"))

// ChunkID returns the deterministic identifier of a chunk. The same session,
// source and text always map to the same ID, so re-adding an unchanged chunk
// overwrites its point instead of creating a duplicate.
func ChunkID(c Chunk) string {
	key := c.Metadata.SessionID + "\x00" + c.Metadata.Source + "\x00" + c.Text
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// DocStore wraps an Embedder and a VectorStore behind add/search operations
// that always carry a session filter. It embeds each new chunk exactly once
// and never retries backend failures.
type DocStore struct {
	// embedder converts text to dense vectors.
	embedder Embedder

	// store persists and searches the vectors.
	store VectorStore
}

// NewDocStore constructs a DocStore from the given Embedder and VectorStore.
func NewDocStore(embedder Embedder, store VectorStore) (*DocStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	return &DocStore{embedder: embedder, store: store}, nil
}

// Add indexes chunks and returns their IDs in input order. Every chunk must
// carry a session_id and non-empty text; nothing is written if any fails
// validation. Chunks already present in the backend are not re-embedded.
func (d *DocStore) Add(ctx context.Context, chunks []Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		if c.Metadata.SessionID == "" {
			return nil, fmt.Errorf("rag: add chunk %d: %w", i, ErrMissingSession)
		}
		if c.Text == "" {
			return nil, fmt.Errorf("rag: add chunk %d: %w", i, ErrEmptyChunk)
		}
		ids[i] = ChunkID(c)
	}

	unique := make([]string, 0, len(ids))
	first := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := first[id]; ok {
			continue
		}
		first[id] = i
		unique = append(unique, id)
	}

	existing, err := d.store.Existing(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("rag: add: %w", err)
	}

	var (
		pending []IndexedDocument
		texts   []string
	)
	for _, id := range unique {
		if existing[id] {
			continue
		}
		c := chunks[first[id]]
		pending = append(pending, IndexedDocument{
			ID:    id,
			Chunk: Chunk{Text: c.Text, Metadata: c.Metadata.Clone()},
		})
		texts = append(texts, c.Text)
	}
	if len(pending) == 0 {
		return ids, nil
	}

	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	for i := range pending {
		pending[i].Embedding = vectors[i]
	}

	if err := d.store.Upsert(ctx, pending); err != nil {
		return nil, fmt.Errorf("rag: add: %w", err)
	}
	return ids, nil
}

// Search embeds query and returns up to k chunks of the filtered session,
// most similar first. A session with no documents yields an empty result.
func (d *DocStore) Search(ctx context.Context, query string, filter Filter, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	vector, err := d.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := d.store.Search(ctx, vector, filter, k)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	return results, nil
}

func (d *DocStore) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if qe, ok := d.embedder.(QueryEmbedder); ok {
		vector, err := qe.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: query: %w", ErrEmbeddingFailed, err)
		}
		return vector, nil
	}
	vectors, err := d.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrEmbeddingFailed, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for query", ErrEmbeddingFailed, len(vectors))
	}
	return vectors[0], nil
}

// Purge removes every indexed chunk of the filtered session.
func (d *DocStore) Purge(ctx context.Context, filter Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if err := d.store.DeleteByFilter(ctx, filter); err != nil {
		return fmt.Errorf("rag: purge: %w", err)
	}
	return nil
}

// Close closes the underlying vector store.
func (d *DocStore) Close() error {
	return d.store.Close()
}
