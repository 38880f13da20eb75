package adapter

import "context"

// AudioAssembler concatenates ordered audio segment files into one output file.
type AudioAssembler interface {
	// Format is the output container extension without dot, e.g. "wav" or "mp3".
	Format() string

	Assemble(ctx context.Context, segmentPaths []string, outPath string) error
}
