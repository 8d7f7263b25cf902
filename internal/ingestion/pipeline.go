// Package ingestion implements the resume ingestion pipeline: validate file
// types, save uploads under a per-session directory, extract text from .txt
// and .pdf files, chunk it and index the chunks for the session.
// A failing file aborts only itself; the rest of the batch continues.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/54b3r/resumeai-go/internal/chunker"
	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/rag"
)

// DefaultMaxFileBytes caps the size of a single uploaded file.
const DefaultMaxFileBytes = 10 << 20

var (
	// ErrUnsupportedFileType is returned when any file in a batch is not
	// .txt or .pdf. Nothing from the batch is saved or indexed.
	ErrUnsupportedFileType = errors.New("ingestion: unsupported file type")

	// ErrNoFiles is returned for an empty batch.
	ErrNoFiles = errors.New("ingestion: no files provided")

	// ErrFileTooLarge is recorded for a file larger than the configured cap.
	ErrFileTooLarge = errors.New("ingestion: file too large")

	// ErrOutsideRoot is returned when a path escapes its root directory.
	ErrOutsideRoot = errors.New("ingestion: path is outside the root directory")
)

// supportedExt lists the accepted file extensions.
var supportedExt = map[string]bool{".txt": true, ".pdf": true}

// Supported reports whether name has a .txt or .pdf extension.
func Supported(name string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(name))]
}

// Indexer is the session-bound sink for chunks, normally the agent facade.
type Indexer interface {
	AddDocuments(ctx context.Context, chunks []rag.Chunk) ([]string, error)
}

// Upload is one file of a batch.
type Upload struct {
	// Name is the client-supplied file name; only its base name is used.
	Name string

	// Body is the file content.
	Body io.Reader
}

// FileResult is the outcome for one file.
type FileResult struct {
	// Name is the stored file name.
	Name string `json:"name"`

	// Chunks is the number of chunks indexed from the file.
	Chunks int `json:"chunks"`

	// Error is set when the file failed.
	Error string `json:"error,omitempty"`
}

// Report summarises a batch.
type Report struct {
	// SessionID is the session the batch was indexed for.
	SessionID string `json:"session_id"`

	// FilesSaved counts the files written to the upload directory, or read
	// from the source directory in directory mode.
	FilesSaved int `json:"files_saved"`

	// ChunksIndexed is the total number of chunks indexed.
	ChunksIndexed int `json:"chunks_indexed"`

	// Files holds one entry per processed file, in input order.
	Files []FileResult `json:"files"`

	// Skipped lists directory entries ignored for their file type.
	Skipped []string `json:"skipped,omitempty"`
}

// Failed returns the files that did not index cleanly.
func (r *Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Error != "" {
			out = append(out, f)
		}
	}
	return out
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Splitter chunks extracted text. Defaults to chunker.DefaultSize /
	// chunker.DefaultOverlap if nil.
	Splitter *chunker.Splitter

	// UploadRoot is the directory under which per-session upload folders
	// are created. Defaults to data/uploads if empty.
	UploadRoot string

	// MaxFileBytes caps a single file. Defaults to DefaultMaxFileBytes if zero.
	MaxFileBytes int64
}

// Pipeline orchestrates the validate → save → extract → chunk → index flow.
// It is safe for concurrent use.
type Pipeline struct {
	splitter *chunker.Splitter
	root     string
	maxBytes int64
}

// NewPipeline constructs a Pipeline from cfg.
func NewPipeline(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	splitter := cfg.Splitter
	if splitter == nil {
		var err error
		if splitter, err = chunker.New(chunker.DefaultSize, chunker.DefaultOverlap); err != nil {
			return nil, fmt.Errorf("ingestion: %w", err)
		}
	}
	root := cfg.UploadRoot
	if root == "" {
		root = filepath.Join("data", "uploads")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("ingestion: resolve upload root: %w", err)
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Pipeline{splitter: splitter, root: absRoot, maxBytes: maxBytes}, nil
}

// UploadRoot returns the resolved upload directory.
func (p *Pipeline) UploadRoot() string { return p.root }

// Ingest saves and indexes uploads for sessionID. Every extension is checked
// before anything is written; one unsupported file rejects the whole batch
// with ErrUnsupportedFileType. Per-file failures are recorded in the report.
func (p *Pipeline) Ingest(ctx context.Context, ix Indexer, sessionID string, uploads []Upload) (*Report, error) {
	if sessionID == "" {
		return nil, rag.ErrMissingSession
	}
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	for _, u := range uploads {
		if !Supported(u.Name) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, strings.ToLower(filepath.Ext(u.Name)))
		}
	}

	dir, err := ConfineToDir(p.root, filepath.Join(p.root, sessionID))
	if err != nil || dir == p.root {
		return nil, fmt.Errorf("ingestion: invalid session id %q", sessionID)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("ingestion: create session dir: %w", err)
	}

	log := logging.FromContext(ctx).With(slog.String("session_id", sessionID))
	report := &Report{SessionID: sessionID, Files: make([]FileResult, 0, len(uploads))}
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := filepath.Base(filepath.Clean(u.Name))
		res := FileResult{Name: name}

		path, err := p.save(dir, name, u.Body)
		if err != nil {
			res.Error = err.Error()
			report.Files = append(report.Files, res)
			log.Warn("ingestion: save failed", slog.String("file", name), slog.Any("error", err))
			continue
		}
		report.FilesSaved++

		res.Chunks, err = p.indexFile(ctx, ix, sessionID, name, path)
		if err != nil {
			res.Error = err.Error()
			log.Warn("ingestion: index failed", slog.String("file", name), slog.Any("error", err))
		}
		report.ChunksIndexed += res.Chunks
		report.Files = append(report.Files, res)
	}

	log.Info("ingestion: batch complete",
		slog.Int("files_saved", report.FilesSaved),
		slog.Int("chunks_indexed", report.ChunksIndexed),
		slog.Int("failed", len(report.Failed())),
	)
	return report, nil
}

// IngestDir indexes every supported file directly inside dir for sessionID.
// Unsupported entries and subdirectories are skipped, not rejected.
func (p *Pipeline) IngestDir(ctx context.Context, ix Indexer, sessionID, dir string) (*Report, error) {
	if sessionID == "" {
		return nil, rag.ErrMissingSession
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	log := logging.FromContext(ctx).With(slog.String("session_id", sessionID))
	report := &Report{SessionID: sessionID}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !Supported(e.Name()) {
			report.Skipped = append(report.Skipped, e.Name())
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.FilesSaved++
		res := FileResult{Name: e.Name()}
		res.Chunks, err = p.indexFile(ctx, ix, sessionID, e.Name(), filepath.Join(dir, e.Name()))
		if err != nil {
			res.Error = err.Error()
			log.Warn("ingestion: index failed", slog.String("file", e.Name()), slog.Any("error", err))
		}
		report.ChunksIndexed += res.Chunks
		report.Files = append(report.Files, res)
	}
	return report, nil
}

// save writes body to dir/name, enforcing the size cap.
func (p *Pipeline) save(dir, name string, body io.Reader) (string, error) {
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name")
	}
	path, err := ConfineToDir(dir, filepath.Join(dir, name))
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, io.LimitReader(body, p.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > p.maxBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, p.maxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return path, nil
}

// indexFile extracts, chunks and indexes one file. A file with no text
// indexes zero chunks without error.
func (p *Pipeline) indexFile(ctx context.Context, ix Indexer, sessionID, name, path string) (int, error) {
	text, err := ExtractText(path)
	if err != nil {
		return 0, err
	}
	chunks := p.splitter.Split(text, rag.Metadata{Source: name, SessionID: sessionID})
	if len(chunks) == 0 {
		return 0, nil
	}
	ids, err := ix.AddDocuments(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", name, err)
	}
	return len(ids), nil
}

// confineToDir validates that target resolves to a path inside root after
// cleaning both. This prevents path traversal (e.g. "../../etc/passwd").
func ConfineToDir(root, target string) (string, error) {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return target, nil
}
