package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiMaxBatch is the largest batch the embedContent endpoint accepts.
const geminiMaxBatch = 100

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Google AI Studio key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-004").
	Model string
	// Dimensions truncates the output vector when positive.
	Dimensions int
	// BaseURL overrides the API endpoint. Empty uses the public endpoint.
	BaseURL string
}

// Task types select the embedding space side. Documents and queries are
// embedded asymmetrically by the retrieval models.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GeminiEmbedder implements rag.Embedder and rag.QueryEmbedder with the
// Gemini embedContent API. It is safe for concurrent use.
type GeminiEmbedder struct {
	models      *genai.Models
	model       string
	docConfig   *genai.EmbedContentConfig
	queryConfig *genai.EmbedContentConfig
}

// NewGeminiEmbedder constructs a GeminiEmbedder backed by a genai client.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create client: %w", err)
	}
	return &GeminiEmbedder{
		models:      client.Models,
		model:       cfg.Model,
		docConfig:   geminiTaskConfig(taskRetrievalDocument, cfg.Dimensions),
		queryConfig: geminiTaskConfig(taskRetrievalQuery, cfg.Dimensions),
	}, nil
}

func geminiTaskConfig(task string, dims int) *genai.EmbedContentConfig {
	ec := &genai.EmbedContentConfig{TaskType: task}
	if dims > 0 {
		d := int32(dims) //nolint:gosec // dimensions are small
		ec.OutputDimensionality = &d
	}
	return ec
}

// Embed converts document texts into embeddings, splitting into batches the
// API accepts. The returned slice is parallel to the input slice.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, e.docConfig)
}

// EmbedQuery embeds a single search query in the query task space.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, e.queryConfig)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, config *genai.EmbedContentConfig) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := min(start+geminiMaxBatch, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		resp, err := e.models.EmbedContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", end-start, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}
