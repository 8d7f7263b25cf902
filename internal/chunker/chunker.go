// Package chunker splits resume text into overlapping segments sized for
// embedding. Splitting recurses over a priority list of separators
// (paragraph, line, sentence, word, character) and then greedily merges the
// pieces back up to the chunk size, carrying a tail of the previous chunk
// into the next one as overlap. Lengths are measured in runes.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/54b3r/resumeai-go/internal/rag"
)

const (
	// DefaultSize is the default maximum chunk length in runes.
	DefaultSize = 400
	// DefaultOverlap is the default overlap between consecutive chunks.
	DefaultOverlap = 50

	// KeyChunkIndex is the metadata key holding a chunk's position in its file.
	KeyChunkIndex = "chunk_index"

	// unknownSource is used when the caller supplies no source name.
	unknownSource = "unknown"
)

// separators are tried in order; "" is the character-level fallback.
var separators = []string{"\n\n", "\n", ".", " ", ""}

// Splitter is a configured recursive splitter. It is immutable and safe for
// concurrent use.
type Splitter struct {
	size    int
	overlap int
}

// New returns a Splitter producing chunks of at most size runes that share up
// to overlap runes with their predecessor.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split normalizes text and returns its chunks, each carrying a copy of meta
// with chunk_index set. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string, meta rag.Metadata) []rag.Chunk {
	pieces := s.SplitText(Normalize(text))
	if len(pieces) == 0 {
		return nil
	}
	if meta.Source == "" {
		meta.Source = unknownSource
	}

	chunks := make([]rag.Chunk, 0, len(pieces))
	for i, p := range pieces {
		m := meta.Clone()
		if m.Extra == nil {
			m.Extra = make(map[string]string, 1)
		}
		m.Extra[KeyChunkIndex] = strconv.Itoa(i)
		chunks = append(chunks, rag.Chunk{Text: p, Metadata: m})
	}
	return chunks
}

// SplitText splits already-normalized text into chunk strings.
func (s *Splitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= s.size {
		return []string{text}
	}
	return s.split(text, separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep, rest := seps[len(seps)-1], []string(nil)
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep, rest = candidate, seps[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) <= s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
			continue
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge greedily joins pieces up to size. When a chunk is emitted, pieces are
// dropped from the front of the window until at most overlap runes remain, so
// the next chunk starts with the tail of the previous one.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out    []string
		window []string
		total  int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				out = append(out, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeep splits text on sep, keeping each separator attached to the end
// of the piece it terminates. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans extracted document text: invalid UTF-8 and control
// characters are dropped, line endings become \n, runs of spaces collapse,
// trailing spaces are removed from each line and 3+ newlines collapse to a
// single blank line.
func Normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, text)
	text = inlineSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
