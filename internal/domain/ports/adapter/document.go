package adapter

import (
	"context"

	"echobook/internal/domain/model"
)

// TextExtractor turns a document into page-ordered text chunks.
type TextExtractor interface {
	Extract(ctx context.Context, path string) ([]model.Chunk, error)
}
