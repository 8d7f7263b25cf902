package config

import (
	"strings"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"VECTOR_STORE", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "RAG_TOP_K",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "RESUMEAI_UPLOAD_ROOT", "RESUMEAI_PURGE_ON_RESET",
		"RESUMEAI_RATE_LIMIT", "RESUMEAI_RATE_BURST",
	} {
		t.Setenv(k, "")
	}

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.VectorStore != VectorStoreQdrant || s.QdrantPort != 6334 || s.QdrantCollection != "resumes" {
		t.Errorf("qdrant defaults: %+v", s)
	}
	if s.TopK != 5 || s.ChunkSize != 400 || s.ChunkOverlap != 50 {
		t.Errorf("rag defaults: k=%d size=%d overlap=%d", s.TopK, s.ChunkSize, s.ChunkOverlap)
	}
	if s.UploadRoot != "data/uploads" || s.PurgeOnReset {
		t.Errorf("session defaults: %+v", s)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("VECTOR_STORE", "memory")
	t.Setenv("RAG_TOP_K", "7")
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("RESUMEAI_PURGE_ON_RESET", "true")
	t.Setenv("RESUMEAI_RATE_LIMIT", "0")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.VectorStore != VectorStoreMemory || s.TopK != 7 || s.ChunkSize != 800 || s.ChunkOverlap != 100 {
		t.Errorf("overrides not applied: %+v", s)
	}
	if !s.PurgeOnReset || s.RateLimit != 0 {
		t.Errorf("purge/rate: %+v", s)
	}
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	valid := func() Settings {
		return Settings{VectorStore: VectorStoreQdrant, TopK: 5, ChunkSize: 400, ChunkOverlap: 50}
	}
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "valid", mutate: func(*Settings) {}},
		{name: "unknown store", mutate: func(s *Settings) { s.VectorStore = "chroma" }, wantErr: "VECTOR_STORE"},
		{name: "negative k", mutate: func(s *Settings) { s.TopK = -1 }, wantErr: "RAG_TOP_K"},
		{name: "zero size", mutate: func(s *Settings) { s.ChunkSize = 0 }, wantErr: "CHUNK_SIZE"},
		{name: "overlap too big", mutate: func(s *Settings) { s.ChunkOverlap = 400 }, wantErr: "CHUNK_OVERLAP"},
		{name: "negative rate", mutate: func(s *Settings) { s.RateLimit = -1 }, wantErr: "RESUMEAI_RATE_LIMIT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tc.mutate(&s)
			err := s.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}
