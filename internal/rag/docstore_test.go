package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// countingEmbedder maps text to a small vector and records every text embedded.
type countingEmbedder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		e.calls = append(e.calls, t)
		out[i] = keywordVector(t)
	}
	return out, nil
}

// keywordVector scores a text on three fixed axes so similarity is predictable.
func keywordVector(t string) []float32 {
	t = strings.ToLower(t)
	v := []float32{0.01, 0.01, 0.01}
	if strings.Contains(t, "go") {
		v[0] = 1
	}
	if strings.Contains(t, "python") {
		v[1] = 1
	}
	if strings.Contains(t, "design") {
		v[2] = 1
	}
	return v
}

func chunk(session, source, text string) Chunk {
	return Chunk{Text: text, Metadata: Metadata{Source: source, SessionID: session}}
}

func newTestDocStore(t *testing.T) (*DocStore, *countingEmbedder, *MemoryStore) {
	t.Helper()
	emb := &countingEmbedder{}
	mem := NewMemoryStore()
	ds, err := NewDocStore(emb, mem)
	if err != nil {
		t.Fatalf("new doc store: %v", err)
	}
	return ds, emb, mem
}

func Test_DocStore_AddEmbedsOnce(t *testing.T) {
	t.Parallel()
	ds, emb, mem := newTestDocStore(t)
	ctx := context.Background()

	chunks := []Chunk{
		chunk("s1", "a.txt", "Go engineer"),
		chunk("s1", "a.txt", "Python engineer"),
		chunk("s1", "a.txt", "Go engineer"),
	}
	ids, err := ds.Add(ctx, chunks)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("want 3 ids, got %d", len(ids))
	}
	if ids[0] != ids[2] {
		t.Errorf("identical chunks should share an id: %s vs %s", ids[0], ids[2])
	}
	if len(emb.calls) != 2 {
		t.Errorf("want 2 embeddings for 2 distinct chunks, got %d", len(emb.calls))
	}

	if _, err := ds.Add(ctx, chunks[:1]); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if len(emb.calls) != 2 {
		t.Errorf("re-adding an unchanged chunk must not re-embed, calls=%d", len(emb.calls))
	}
	if mem.Len() != 2 {
		t.Errorf("want 2 stored documents, got %d", mem.Len())
	}
}

func Test_DocStore_AddValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		chunks  []Chunk
		wantErr error
	}{
		{
			name:    "missing session",
			chunks:  []Chunk{chunk("s1", "a.txt", "ok"), chunk("", "b.txt", "no session")},
			wantErr: ErrMissingSession,
		},
		{
			name:    "empty text",
			chunks:  []Chunk{chunk("s1", "a.txt", "")},
			wantErr: ErrEmptyChunk,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ds, emb, mem := newTestDocStore(t)
			_, err := ds.Add(context.Background(), tc.chunks)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(emb.calls) != 0 || mem.Len() != 0 {
				t.Errorf("nothing should be embedded or stored on validation failure")
			}
		})
	}
}

func Test_DocStore_SearchIsSessionScoped(t *testing.T) {
	t.Parallel()
	ds, _, _ := newTestDocStore(t)
	ctx := context.Background()

	_, err := ds.Add(ctx, []Chunk{
		chunk("s1", "alice.txt", "Go and design"),
		chunk("s1", "alice.txt", "Python scripts"),
		chunk("s2", "bob.txt", "Go services"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := ds.Search(ctx, "go", Filter{SessionID: "s1"}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results in s1, got %d", len(results))
	}
	for _, r := range results {
		if r.Chunk.Metadata.SessionID != "s1" {
			t.Errorf("result from foreign session %q", r.Chunk.Metadata.SessionID)
		}
	}
	if results[0].Chunk.Text != "Go and design" {
		t.Errorf("want Go chunk ranked first, got %q", results[0].Chunk.Text)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by score: %v < %v", results[0].Score, results[1].Score)
	}

	top1, err := ds.Search(ctx, "go", Filter{SessionID: "s1"}, 1)
	if err != nil {
		t.Fatalf("search k=1: %v", err)
	}
	if len(top1) != 1 {
		t.Errorf("want 1 result, got %d", len(top1))
	}
}

func Test_DocStore_SearchEmptySession(t *testing.T) {
	t.Parallel()
	ds, _, _ := newTestDocStore(t)

	results, err := ds.Search(context.Background(), "anything", Filter{SessionID: "nobody"}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("want no results, got %d", len(results))
	}
}

func Test_DocStore_SearchErrors(t *testing.T) {
	t.Parallel()
	ds, _, mem := newTestDocStore(t)
	ctx := context.Background()

	if _, err := ds.Search(ctx, "q", Filter{SessionID: "s"}, 0); !errors.Is(err, ErrInvalidK) {
		t.Errorf("k=0: want ErrInvalidK, got %v", err)
	}
	if _, err := ds.Search(ctx, "q", Filter{}, 3); !errors.Is(err, ErrMissingSession) {
		t.Errorf("empty filter: want ErrMissingSession, got %v", err)
	}

	_ = mem.Close()
	if _, err := ds.Search(ctx, "q", Filter{SessionID: "s"}, 3); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("closed store: want ErrStoreUnavailable, got %v", err)
	}
}

func Test_DocStore_EmbedderFailure(t *testing.T) {
	t.Parallel()
	emb := &countingEmbedder{err: errors.New("boom")}
	ds, err := NewDocStore(emb, NewMemoryStore())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := ds.Add(context.Background(), []Chunk{chunk("s", "a", "text")}); !errors.Is(err, ErrEmbeddingFailed) {
		t.Errorf("want ErrEmbeddingFailed, got %v", err)
	}
}

// queryAwareEmbedder embeds queries on a separate axis so a search that
// bypassed EmbedQuery would rank documents differently.
type queryAwareEmbedder struct {
	countingEmbedder
	queries []string
}

func (e *queryAwareEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, text)
	return []float32{0.01, 0.01, 1}, nil
}

func Test_DocStore_SearchPrefersQueryEmbedding(t *testing.T) {
	t.Parallel()
	emb := &queryAwareEmbedder{}
	ds, err := NewDocStore(emb, NewMemoryStore())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := ds.Add(ctx, []Chunk{
		chunk("s1", "alice.txt", "Go services"),
		chunk("s1", "alice.txt", "design systems"),
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := ds.Search(ctx, "go", Filter{SessionID: "s1"}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "design systems" {
		t.Errorf("want the query embedding to rank design first, got %+v", results)
	}
	if len(emb.queries) != 1 || emb.queries[0] != "go" {
		t.Errorf("EmbedQuery calls: got %v", emb.queries)
	}
	if len(emb.calls) != 2 {
		t.Errorf("Embed should only see the two documents, got %v", emb.calls)
	}
}

func Test_DocStore_Purge(t *testing.T) {
	t.Parallel()
	ds, _, mem := newTestDocStore(t)
	ctx := context.Background()

	_, err := ds.Add(ctx, []Chunk{chunk("s1", "a", "one"), chunk("s2", "b", "two")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ds.Purge(ctx, Filter{SessionID: "s1"}); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if mem.Len() != 1 {
		t.Errorf("want 1 document left, got %d", mem.Len())
	}
	results, _ := ds.Search(ctx, "two", Filter{SessionID: "s2"}, 5)
	if len(results) != 1 {
		t.Errorf("other session should be untouched, got %d results", len(results))
	}
}

func Test_ChunkID_Deterministic(t *testing.T) {
	t.Parallel()
	a := ChunkID(chunk("s1", "a.txt", "text"))
	b := ChunkID(chunk("s1", "a.txt", "text"))
	c := ChunkID(chunk("s2", "a.txt", "text"))
	if a != b {
		t.Errorf("same chunk produced different ids")
	}
	if a == c {
		t.Errorf("different sessions must produce different ids")
	}
}
