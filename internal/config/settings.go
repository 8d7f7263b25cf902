package config

import (
	"fmt"
	"os"
	"strconv"
)

// Vector store backends accepted by VECTOR_STORE.
const (
	VectorStoreQdrant = "qdrant"
	VectorStoreMemory = "memory"
)

// Settings is the resolved runtime configuration read from the environment
// after Load has applied the YAML file.
type Settings struct {
	// VectorStore is qdrant (default) or memory.
	VectorStore string

	// Qdrant connection settings, used when VectorStore is qdrant.
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string
	QdrantAPIKey     string
	QdrantTLS        bool

	// TopK is the default retrieval depth. Zero defers to the chain default.
	TopK int

	// ChunkSize and ChunkOverlap configure the splitter.
	ChunkSize    int
	ChunkOverlap int

	// MaxContextTokens bounds the prompt. Zero defers to the budget default.
	MaxContextTokens int

	// HistoryDB is the SQLite path. Empty selects the default under the home
	// directory.
	HistoryDB string

	// UploadRoot is the directory holding per-session uploads.
	UploadRoot string

	// PurgeOnReset makes reset also delete the session's documents.
	PurgeOnReset bool

	// IngestRoot is the server-side directory POST /api/ingest/directory
	// may read from. Empty disables the endpoint.
	IngestRoot string

	// APIKey enables bearer authentication on the HTTP API when set.
	APIKey string

	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit float64
	// RateBurst is the token bucket size.
	RateBurst int
}

// FromEnv reads Settings from the environment, applying defaults.
func FromEnv() (*Settings, error) {
	s := &Settings{
		VectorStore:      getEnvOrDefault("VECTOR_STORE", VectorStoreQdrant),
		QdrantHost:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantCollection: getEnvOrDefault("QDRANT_COLLECTION", "resumes"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantTLS:        getEnvBool("QDRANT_TLS"),
		TopK:             getEnvInt("RAG_TOP_K", 5),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 400),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 50),
		MaxContextTokens: getEnvInt("RAG_MAX_CONTEXT_TOKENS", 0),
		HistoryDB:        os.Getenv("RESUMEAI_HISTORY_DB"),
		UploadRoot:       getEnvOrDefault("RESUMEAI_UPLOAD_ROOT", "data/uploads"),
		PurgeOnReset:     getEnvBool("RESUMEAI_PURGE_ON_RESET"),
		IngestRoot:       os.Getenv("RESUMEAI_INGEST_ROOT"),
		APIKey:           os.Getenv("RESUMEAI_API_KEY"),
		RateLimit:        getEnvFloat64("RESUMEAI_RATE_LIMIT", 5),
		RateBurst:        getEnvInt("RESUMEAI_RATE_BURST", 10),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings that cannot produce a working runtime.
func (s *Settings) Validate() error {
	switch s.VectorStore {
	case VectorStoreQdrant, VectorStoreMemory:
	default:
		return fmt.Errorf("config: VECTOR_STORE must be %q or %q, got %q", VectorStoreQdrant, VectorStoreMemory, s.VectorStore)
	}
	if s.TopK < 0 {
		return fmt.Errorf("config: RAG_TOP_K must not be negative, got %d", s.TopK)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("config: CHUNK_SIZE must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", s.ChunkOverlap)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("config: RESUMEAI_RATE_LIMIT must not be negative, got %v", s.RateLimit)
	}
	return nil
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

func getEnvFloat64(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
