// Package chunker splits document text into overlapping retrieval chunks.
package chunker

import (
	"strings"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Chunk is a bounded substring of a document, the unit of retrieval.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	Page       int
}

// Chunker splits text into chunks of at most Size characters, with consecutive
// chunks sharing Overlap characters. Cut points prefer paragraph breaks, then
// sentence ends, falling back to hard cuts.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text for the given document id. Whitespace-only input yields no
// chunks; no produced chunk is empty.
func (c *Chunker) Split(documentID, text string) []Chunk {
	return c.split(documentID, text, 0, 0)
}

// SplitPage is Split for a single page of a paginated document. Chunk indexes
// continue from startIndex so ids stay unique across pages.
func (c *Chunker) SplitPage(documentID, text string, page, startIndex int) []Chunk {
	return c.split(documentID, text, page, startIndex)
}

func (c *Chunker) split(documentID, text string, page, startIndex int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	idx := startIndex
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = cutPoint(text, start, end)
		}

		piece := text[start:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{
				DocumentID: documentID,
				Index:      idx,
				Text:       piece,
				Page:       page,
			})
			idx++
		}

		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// cutPoint picks the best split position in text[start:limit], preferring a
// paragraph break, then a sentence end, then the hard limit.
func cutPoint(text string, start, limit int) int {
	window := text[start:limit]

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i + 2
	}
	if i := lastSentenceEnd(window); i > 0 {
		return start + i
	}
	if i := strings.LastIndexByte(window, '\n'); i > 0 {
		return start + i + 1
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return start + i + 1
	}
	return limit
}

func lastSentenceEnd(s string) int {
	best := -1
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' || s[i+1] == '\n' {
				best = i + 2
			}
		}
	}
	return best
}
