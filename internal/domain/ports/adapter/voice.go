package adapter

import (
	"context"

	"echobook/internal/domain/model"
)

// VoiceProvider is the remote voice registry and trainer.
type VoiceProvider interface {
	// ListVoices returns one page of registered voices (page is 1-based).
	ListVoices(ctx context.Context, page, pageSize int) (*model.VoicePage, error)

	// CreateVoice creates an empty voice container and returns its identifier.
	CreateVoice(ctx context.Context, name string) (string, error)

	// UploadRecording attaches one audio take to the voice.
	UploadRecording(ctx context.Context, voiceID, name, audioPath string) error

	// BuildVoice starts asynchronous training; it does not wait for completion.
	BuildVoice(ctx context.Context, voiceID string) error
}

// SampleFormat is the PCM layout a provider requires for training samples.
type SampleFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// SampleNormalizer converts a voice sample into the provider's required format.
type SampleNormalizer interface {
	// Normalize writes a WAV in the target format under dir and returns its path.
	// When the source already matches, the source path is returned untouched.
	Normalize(ctx context.Context, srcPath, dir string, target SampleFormat) (string, error)
}
