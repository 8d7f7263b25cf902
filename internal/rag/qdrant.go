package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use (default: resumes).
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. Session
// filtering runs inside Qdrant against a keyword index on session_id, so
// ranking and limits apply within the session.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// and its session_id payload index exist.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "resumes"
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be set")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant: create client: %w", ErrStoreUnavailable, err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// ensureCollection creates the collection and the session_id index if absent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("%w: qdrant: check collection: %w", ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant: create collection %q: %w", ErrStoreUnavailable, s.cfg.Collection, err)
	}

	wait := true
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		FieldName:      KeySessionID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant: index %s: %w", ErrStoreUnavailable, KeySessionID, err)
	}
	return nil
}

// Upsert stores or replaces a batch of documents with their embeddings.
func (s *QdrantStore) Upsert(ctx context.Context, docs []IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(encodePayload(doc.Chunk)),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant: upsert: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Search performs a session-filtered cosine similarity query.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]SearchResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         sessionFilter(filter),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant: query: %w", ErrStoreUnavailable, err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, SearchResult{
			ID:    p.GetId().GetUuid(),
			Chunk: decodePayload(p.GetPayload()),
			Score: p.GetScore(),
		})
	}
	return results, nil
}

// Existing reports which ids are already stored in the collection.
func (s *QdrantStore) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.cfg.Collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant: get: %w", ErrStoreUnavailable, err)
	}
	for _, p := range points {
		out[p.GetId().GetUuid()] = true
	}
	return out, nil
}

// DeleteByFilter removes every point of the filtered session.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(sessionFilter(filter)),
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant: delete: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping reports whether the Qdrant server answers its health check.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: qdrant: health: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func sessionFilter(f Filter) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(KeySessionID, f.SessionID)},
	}
}

func encodePayload(c Chunk) map[string]any {
	payload := make(map[string]any, len(c.Metadata.Extra)+3)
	for k, v := range c.Metadata.Extra {
		payload[k] = v
	}
	payload[KeyText] = c.Text
	payload[KeySource] = c.Metadata.Source
	payload[KeySessionID] = c.Metadata.SessionID
	return payload
}

func decodePayload(p map[string]*qdrant.Value) Chunk {
	var c Chunk
	for k, v := range p {
		s := v.GetStringValue()
		switch k {
		case KeyText:
			c.Text = s
		case KeySource:
			c.Metadata.Source = s
		case KeySessionID:
			c.Metadata.SessionID = s
		default:
			if c.Metadata.Extra == nil {
				c.Metadata.Extra = make(map[string]string)
			}
			c.Metadata.Extra[k] = s
		}
	}
	return c
}
