// File: internal/infra/adapters/speech/voices.go
package speech

import (
	"context"

	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.VoiceProvider = (*StaticVoices)(nil)

var (
	OpenAIVoices = []string{"alloy", "ash", "ballad", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"}
	GeminiVoices = []string{"Kore", "Puck", "Charon", "Zephyr", "Fenrir", "Leda", "Orus", "Aoede"}
)

// StaticVoices lists a provider's built-in voices. Providers behind it offer
// no custom voice registration.
type StaticVoices struct {
	provider string
	voices   []string
}

func NewStaticVoices(provider string, voices []string) *StaticVoices {
	return &StaticVoices{provider: provider, voices: voices}
}

func (s *StaticVoices) ListVoices(ctx context.Context, page, pageSize int) (*model.VoicePage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	numPages := (len(s.voices) + pageSize - 1) / pageSize
	out := &model.VoicePage{Page: page, NumPages: numPages, PageSize: pageSize, Items: []model.Voice{}}

	from := (page - 1) * pageSize
	if from >= len(s.voices) {
		return out, nil
	}
	to := min(from+pageSize, len(s.voices))
	for _, v := range s.voices[from:to] {
		out.Items = append(out.Items, model.Voice{ID: v, Name: v, Status: "finished"})
	}
	return out, nil
}

func (s *StaticVoices) unsupported(op string) error {
	return &adapter.ProviderError{Provider: s.provider, Op: op, Message: "custom voices are not supported"}
}

func (s *StaticVoices) CreateVoice(ctx context.Context, name string) (string, error) {
	return "", s.unsupported("create_voice")
}

func (s *StaticVoices) UploadRecording(ctx context.Context, voiceID, name, audioPath string) error {
	return s.unsupported("upload_recording")
}

func (s *StaticVoices) BuildVoice(ctx context.Context, voiceID string) error {
	return s.unsupported("build_voice")
}
