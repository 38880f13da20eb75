// File: internal/infra/adapters/speech/gemini.go
package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/adapters/audio"
)

// Compile-time check
var _ adapter.Synthesizer = (*GeminiSynthesizer)(nil)

// Gemini TTS returns raw 16-bit little-endian mono PCM at 24 kHz.
const geminiSampleRate = 24000

// GeminiSynthesizer renders speech with a Gemini TTS model and wraps the PCM
// it returns into a WAV container.
type GeminiSynthesizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSynthesizer(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration) (*GeminiSynthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.5-flash-preview-tts"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiSynthesizer{client: c, model: model}, nil
}

func (g *GeminiSynthesizer) Name() string { return "gemini" }

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	if voiceID == "" {
		voiceID = "Kore"
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceID},
			},
		},
	})
	if err != nil {
		return adapter.Audio{}, geminiError(err)
	}

	pcm, err := inlineAudio(resp)
	if err != nil {
		return adapter.Audio{}, &adapter.ProviderError{Provider: "gemini", Op: "speech", Message: err.Error()}
	}
	data, err := audio.EncodePCM16(pcm, geminiSampleRate, 1)
	if err != nil {
		return adapter.Audio{}, fmt.Errorf("gemini: wrap pcm: %w", err)
	}
	return adapter.Audio{Data: data, Format: "wav"}, nil
}

func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no candidates in response")
	}
	var pcm []byte
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil {
			pcm = append(pcm, p.InlineData.Data...)
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("response carries no audio")
	}
	return pcm, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &adapter.ProviderError{Provider: "gemini", Op: "speech", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return &adapter.ProviderError{Provider: "gemini", Op: "speech", Cause: err}
}
