package retrieval

import (
	"strings"
	"unicode"
)

// Chunk is a contiguous slice of a source document.
type Chunk struct {
	// Offset is the rune offset of the chunk start within the document.
	Offset int
	Text   string
}

// splitChunks cuts text into overlapping windows of at most size runes.
// Cuts prefer the last whitespace inside the window so words stay whole;
// consecutive chunks share overlap runes of context. The split is
// deterministic: the same text always yields the same chunks.
func splitChunks(text string, size, overlap int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Offset: start, Text: strings.TrimSpace(string(runes[start:]))})
			break
		}
		cut := lastBreak(runes, start, end)
		chunks = append(chunks, Chunk{Offset: start, Text: strings.TrimSpace(string(runes[start:cut]))})

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	// Drop empty windows produced by runs of whitespace.
	out := chunks[:0]
	for _, c := range chunks {
		if c.Text != "" {
			out = append(out, c)
		}
	}
	return out
}

// lastBreak finds the rightmost whitespace in (start, end] to cut at,
// falling back to a hard cut when the window has none.
func lastBreak(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
