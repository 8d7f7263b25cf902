package embedder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model: got %q", req.Model)
		}
		resp := ollamaEmbedResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL + "/", Model: "nomic-embed-text"})
	got, err := e.Embed(context.Background(), []string{"go engineer", "data scientist"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || got[1][0] != 1 {
		t.Errorf("unexpected vectors: %v", got)
	}
}

func TestOllamaEmbedder_ErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"missing\" not found"}`)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "missing"})
	_, err := e.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("want server error message, got %v", err)
	}
}

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization: got %q", got)
		}
		_, _ = io.WriteString(w, `{"data":[{"index":1,"embedding":[2,2]},{"index":0,"embedding":[1,1]}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small"})
	got, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("vectors not ordered by index: %v", got)
	}
}

func TestOpenAIEmbedder_AzureEndpoint(t *testing.T) {
	t.Parallel()

	var gotURL, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotKey = r.Header.Get("api-key")
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: srv.URL + "/openai", APIKey: "az", Model: "embed-small",
		Azure: true, APIVersion: "2025-04-01-preview",
	})
	if _, err := e.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotURL != "/openai/deployments/embed-small/embeddings?api-version=2025-04-01-preview" {
		t.Errorf("url: got %q", gotURL)
	}
	if gotKey != "az" {
		t.Errorf("api-key header: got %q", gotKey)
	}
}

func TestOpenAIEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("want error when the API returns fewer embeddings than inputs")
	}
}

func TestEmptyBatchMakesNoRequest(t *testing.T) {
	t.Parallel()

	e := NewOllamaEmbedder(&OllamaConfig{Host: "http://127.0.0.1:1", Model: "m"})
	got, err := e.Embed(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty batch: got %v, %v", got, err)
	}
}

func TestBackendAndDimensions(t *testing.T) {
	tests := []struct {
		embedding, model string
		wantBackend      string
		wantDims         int
	}{
		{"", "", "ollama", 768},
		{"", "openai", "openai", 1536},
		{"", "ark", "ollama", 768},
		{"gemini", "openai", "gemini", 768},
	}
	for _, tc := range tests {
		t.Setenv("EMBEDDING_PROVIDER", tc.embedding)
		t.Setenv("MODEL_PROVIDER", tc.model)
		t.Setenv("EMBEDDING_DIMENSIONS", "")
		b := Backend()
		if b != tc.wantBackend {
			t.Errorf("Backend(%q,%q) = %q, want %q", tc.embedding, tc.model, b, tc.wantBackend)
		}
		if d := DefaultDimensions(b); d != tc.wantDims {
			t.Errorf("DefaultDimensions(%q) = %d, want %d", b, d, tc.wantDims)
		}
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "384")
	if d := DefaultDimensions("ollama"); d != 384 {
		t.Errorf("EMBEDDING_DIMENSIONS override: got %d", d)
	}
}

func TestValidateForRAG(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Setenv("EMBEDDING_PROVIDER", "azure")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("EMBEDDING_ENDPOINT", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	if err := ValidateForRAG(log); err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("azure without endpoint: got %v", err)
	}

	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://x.openai.azure.com")
	if err := ValidateForRAG(log); err != nil {
		t.Errorf("azure complete: %v", err)
	}

	t.Setenv("EMBEDDING_PROVIDER", "bedrock")
	if err := ValidateForRAG(log); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"nomic-embed-text":       false,
		"text-embedding-3-small": false,
		"text-embedding-004":     false,
		"gpt-4o":                 true,
		"llama3:8b":              true,
		"gemini-2.5-flash":       true,
	}
	for model, want := range cases {
		if got := looksLikeChatModel(model); got != want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", model, got, want)
		}
	}
}

// geminiTaskServer answers batchEmbedContents and records the task type of
// every request it sees.
func geminiTaskServer(t *testing.T, tasks *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			t.Errorf("path: got %q", r.URL.Path)
		}
		var req struct {
			Requests []struct {
				TaskType string `json:"taskType"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		type embedding struct {
			Values []float32 `json:"values"`
		}
		var resp struct {
			Embeddings []embedding `json:"embeddings"`
		}
		for _, sub := range req.Requests {
			*tasks = append(*tasks, sub.TaskType)
			resp.Embeddings = append(resp.Embeddings, embedding{Values: []float32{0.5, 0.5}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiEmbedder_TaskTypes(t *testing.T) {
	t.Parallel()

	var tasks []string
	srv := geminiTaskServer(t, &tasks)

	e, err := NewGeminiEmbedder(context.Background(), &GeminiConfig{
		APIKey:  "test-key",
		Model:   "text-embedding-004",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGeminiEmbedder: %v", err)
	}

	docs, err := e.Embed(context.Background(), []string{"resume chunk one", "resume chunk two"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Embed: got %d vectors, want 2", len(docs))
	}
	query, err := e.EmbedQuery(context.Background(), "who knows kubernetes?")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(query) != 2 {
		t.Errorf("EmbedQuery: got %d dims, want 2", len(query))
	}

	want := []string{taskRetrievalDocument, taskRetrievalDocument, taskRetrievalQuery}
	if strings.Join(tasks, ",") != strings.Join(want, ",") {
		t.Errorf("task types: got %v, want %v", tasks, want)
	}
}
