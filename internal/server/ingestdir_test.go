package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func ingestDirReq(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/directory", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// newIngestDirEnv builds a server whose ingest root holds a candidates
// directory with one resume and one unsupported file.
func newIngestDirEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "candidates")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"alice.txt": "Alice Smith. Staff Go engineer. Kafka, Postgres.",
		"notes.md":  "not a resume",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return newTestEnv(t, func(c *Config) { c.IngestRoot = root })
}

func TestHandleIngestDir_Success(t *testing.T) {
	t.Parallel()
	env := newIngestDirEnv(t)

	w := env.do(ingestDirReq(`{"session_id":"s1","dir":"candidates"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[uploadResponse](t, w)
	if resp.SessionID != "s1" || resp.FilesSaved != 1 || resp.ChunksIndexed != 1 {
		t.Errorf("unexpected report: %+v", resp)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "notes.md" {
		t.Errorf("skipped: got %v", resp.Skipped)
	}
	if len(env.docs.chunks) != 1 || env.docs.chunks[0].Metadata.SessionID != "s1" ||
		env.docs.chunks[0].Metadata.Source != "alice.txt" {
		t.Errorf("indexed chunks: %+v", env.docs.chunks)
	}
}

func TestHandleIngestDir_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing session", `{"dir":"candidates"}`, http.StatusBadRequest},
		{"escapes root", `{"session_id":"s1","dir":"../.."}`, http.StatusBadRequest},
		{"absolute dir", `{"session_id":"s1","dir":"/etc"}`, http.StatusBadRequest},
		{"missing dir", `{"session_id":"s1","dir":"nobody"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newIngestDirEnv(t)
			w := env.do(ingestDirReq(tc.body))
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if len(env.docs.chunks) != 0 {
				t.Errorf("nothing should be indexed, got %d chunks", len(env.docs.chunks))
			}
		})
	}
}

func TestHandleIngestDir_DisabledWithoutRoot(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.do(ingestDirReq(`{"session_id":"s1"}`))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if resp := decode[errorResponse](t, w); !strings.Contains(resp.Error, "disabled") {
		t.Errorf("error: got %q", resp.Error)
	}
}
