// File: internal/infra/adapters/speech/openai.go
package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Synthesizer = (*OpenAISynthesizer)(nil)

// OpenAISynthesizer renders speech with the OpenAI audio/speech endpoint.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISynthesizer(apiKey, baseURL, model string, timeout time.Duration) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		// retries belong to the provider guard
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	c := openai.NewClient(opts...)
	return &OpenAISynthesizer{client: &c, model: model}, nil
}

func (o *OpenAISynthesizer) Name() string { return "openai" }

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	if voiceID == "" {
		voiceID = "alloy"
	}
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return adapter.Audio{}, openAIError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.Audio{}, &adapter.ProviderError{Provider: "openai", Op: "speech", Cause: err}
	}
	if len(data) == 0 {
		return adapter.Audio{}, &adapter.ProviderError{Provider: "openai", Op: "speech", Message: "empty audio body"}
	}
	return adapter.Audio{Data: data, Format: "wav"}, nil
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &adapter.ProviderError{
			Provider:   "openai",
			Op:         "speech",
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
		}
	}
	return &adapter.ProviderError{Provider: "openai", Op: "speech", Cause: err}
}
