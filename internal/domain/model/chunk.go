package model

import "strings"

// Chunk is one page's extracted text. Page is 1-based.
type Chunk struct {
	Page int
	Text string
}

// IsBlank reports whether the chunk carries no speakable text.
func (c Chunk) IsBlank() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Segment is the synthesized audio file for one page.
type Segment struct {
	Page int
	Path string
}
