package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// similarity. It keeps insertion order so ties rank deterministically.
type MemoryStore struct {
	mu     sync.RWMutex
	order  []string
	docs   map[string]IndexedDocument
	closed bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]IndexedDocument)}
}

// Upsert stores or replaces docs.
func (m *MemoryStore) Upsert(_ context.Context, docs []IndexedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: memory store closed", ErrStoreUnavailable)
	}
	for _, d := range docs {
		if _, ok := m.docs[d.ID]; !ok {
			m.order = append(m.order, d.ID)
		}
		d.Chunk.Metadata = d.Chunk.Metadata.Clone()
		d.Embedding = append([]float32(nil), d.Embedding...)
		m.docs[d.ID] = d
	}
	return nil
}

// Search ranks the documents of filter's session by cosine similarity.
func (m *MemoryStore) Search(_ context.Context, vector []float32, filter Filter, topK int) ([]SearchResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("%w: memory store closed", ErrStoreUnavailable)
	}

	results := make([]SearchResult, 0)
	for _, id := range m.order {
		d := m.docs[id]
		if d.Chunk.Metadata.SessionID != filter.SessionID {
			continue
		}
		results = append(results, SearchResult{
			ID:    id,
			Chunk: Chunk{Text: d.Chunk.Text, Metadata: d.Chunk.Metadata.Clone()},
			Score: cosine(vector, d.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Existing reports which ids are stored.
func (m *MemoryStore) Existing(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("%w: memory store closed", ErrStoreUnavailable)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.docs[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// DeleteByFilter removes every document of filter's session.
func (m *MemoryStore) DeleteByFilter(_ context.Context, filter Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: memory store closed", ErrStoreUnavailable)
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if m.docs[id].Chunk.Metadata.SessionID == filter.SessionID {
			delete(m.docs, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Close marks the store closed; later calls fail with ErrStoreUnavailable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
