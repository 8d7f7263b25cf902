package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpHealthCheck probes a read-only listing endpoint that costs no tokens.
type httpHealthCheck struct {
	url    string
	header http.Header
	client *http.Client
}

// HealthCheck issues a GET and treats any 2xx as reachable.
func (h *httpHealthCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("health check request: %w", err)
	}
	req.Header = h.header.Clone()
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check: HTTP %d from %s", resp.StatusCode, h.url)
	}
	return nil
}

// HealthCheck returns a zero-cost probe for the configured backend, or nil
// when the backend has no such endpoint and callers must fall back to a
// generation call.
func (c *Config) HealthCheck() HealthCheckConfig {
	client := &http.Client{Timeout: 5 * time.Second}
	switch c.Backend {
	case BackendOllama:
		return &httpHealthCheck{
			url:    strings.TrimRight(c.Ollama.Host, "/") + "/api/tags",
			header: http.Header{},
			client: client,
		}
	case BackendOpenAI:
		base := c.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &httpHealthCheck{
			url:    strings.TrimRight(base, "/") + "/models",
			header: http.Header{"Authorization": []string{"Bearer " + c.OpenAI.APIKey}},
			client: client,
		}
	case BackendAzure:
		az := c.AzureOpenAI
		return &httpHealthCheck{
			url:    strings.TrimRight(az.Endpoint, "/") + "/openai/models?api-version=" + az.APIVersion,
			header: http.Header{"Api-Key": []string{az.APIKey}},
			client: client,
		}
	case BackendGemini:
		return &httpHealthCheck{
			url:    "https://generativelanguage.googleapis.com/v1beta/models?pageSize=1",
			header: http.Header{"X-Goog-Api-Key": []string{c.Gemini.APIKey}},
			client: client,
		}
	}
	return nil
}
