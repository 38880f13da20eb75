package adapter

import (
	"context"
	"fmt"
	"net/http"
)

// Synthesizer is the port for remote text-to-speech.
type Synthesizer interface {
	// Name returns the provider identifier (for logging/metrics).
	Name() string

	// Synthesize renders text with the given voice and returns encoded audio.
	Synthesize(ctx context.Context, text, voiceID string) (Audio, error)
}

// Audio is one synthesized clip.
type Audio struct {
	Data []byte
	// Format is the container extension without dot, e.g. "wav".
	Format string
}

// ProviderError is a failed remote call to a speech or voice provider.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Retryable reports whether repeating the call may succeed.
// Transport errors, throttling and 5xx responses are retryable.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return e.Cause != nil
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
