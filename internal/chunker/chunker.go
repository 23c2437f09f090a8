// Package chunker splits raw document text into overlapping, fixed-size
// character windows. Each window is embedded and stored independently by the
// rag engine, so the overlap keeps sentences that straddle a boundary
// retrievable from either side.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultSize is the window length in characters used by the engine.
	DefaultSize = 1000
	// DefaultOverlap is the number of characters shared by consecutive windows.
	DefaultOverlap = 200
)

// ErrInvalidWindow is returned when size and overlap do not satisfy
// 0 <= overlap < size.
var ErrInvalidWindow = errors.New("chunker: overlap must be >= 0 and < size")

// Window is one chunk of a document.
type Window struct {
	// Start is the character (rune) offset of the window within the source text.
	Start int
	// Text is the literal substring covered by the window.
	Text string
}

// Split cuts text into windows of size characters that start at offsets
// 0, size-overlap, 2*(size-overlap), ... until the start offset reaches the
// end of the text. The final window may be shorter than size. Text no longer
// than size is returned as a single window.
//
// Offsets and lengths are counted in runes so that a window never splits a
// multi-byte UTF-8 sequence. Empty or whitespace-only text yields no windows
// and no error.
func Split(text string, size, overlap int) ([]Window, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w (size=%d, overlap=%d)", ErrInvalidWindow, size, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= size {
		return []Window{{Start: 0, Text: text}}, nil
	}
	step := size - overlap

	windows := make([]Window, 0, Count(n, size, overlap))
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		windows = append(windows, Window{
			Start: start,
			Text:  string(runes[start:end]),
		})
	}
	return windows, nil
}

// Count returns the number of windows Split produces for a text of length n:
// 1 when n <= size, otherwise ceil(n/(size-overlap)). It returns 0 for invalid
// parameters or n <= 0.
func Count(n, size, overlap int) int {
	if n <= 0 || size <= 0 || overlap < 0 || overlap >= size {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n + step - 1) / step
}

// Chunker is a reusable splitter bound to one window configuration.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the window size in characters. Non-positive values are ignored.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap in characters. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New constructs a Chunker using DefaultSize and DefaultOverlap unless
// overridden. An overlap that is not smaller than the size is clamped to a
// quarter of the size.
func New(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split splits text with the chunker's window configuration.
func (c *Chunker) Split(text string) []Window {
	// New guarantees a valid window, so the error path is unreachable.
	windows, _ := Split(text, c.size, c.overlap)
	return windows
}
