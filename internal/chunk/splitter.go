// Package chunk splits text into overlapping, order-preserving chunks for
// embedding and storage.
//
// Boundaries prefer paragraph breaks, then line breaks, then sentence ends,
// then word breaks, falling back to a hard character cut only when no softer
// boundary exists within the window.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default maximum chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap carried between chunks.
const DefaultChunkOverlap = 100

// separators is the boundary cascade, strongest break first.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits text into chunks of at most chunkSize bytes with
// overlap bytes carried back from the previous chunk.
// A Splitter is immutable after construction and safe for concurrent use.
type Splitter struct {
	size    int
	overlap int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.size = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// New creates a Splitter. Overlap must be smaller than the chunk size;
// violating that is a configuration error reported here, once, rather than
// at split time.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.size < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.size)
	}
	if s.overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", s.overlap)
	}
	if s.overlap >= s.size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", s.overlap, s.size)
	}

	return s, nil
}

// ChunkSize returns the configured maximum chunk size.
func (s *Splitter) ChunkSize() int { return s.size }

// Overlap returns the configured chunk overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits text into ordered chunks. Non-blank input always yields at
// least one chunk; blank input yields none.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	n := len(text)
	start := 0

	for start < n {
		end := start + s.size
		if end >= n {
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := s.findCut(text, start, end)
		if piece := strings.TrimSpace(text[start:cut]); piece != "" {
			chunks = append(chunks, piece)
		}

		next := runeFloor(text, cut-s.overlap)
		if next <= start {
			next = cut
		}
		start = next
	}

	if len(chunks) == 0 {
		// All windows trimmed to nothing (whitespace runs longer than the
		// chunk size); fall back to the trimmed input.
		chunks = []string{strings.TrimSpace(text)}
	}

	return chunks
}

// findCut picks the cut position inside text[start:end], preferring the
// strongest separator whose last occurrence keeps at least half a window of
// content, so an early paragraph break does not produce degenerate chunks.
func (s *Splitter) findCut(text string, start, end int) int {
	window := text[start:end]
	minCut := len(window) / 2

	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx >= minCut {
			return start + idx + len(sep)
		}
	}

	// No soft boundary; hard cut on a rune boundary.
	cut := runeFloor(text, end)
	if cut <= start {
		cut = end
	}
	return cut
}

// runeFloor moves pos backwards to the nearest rune start so a cut never
// lands inside a multi-byte sequence.
func runeFloor(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
