// File: internal/infra/adapters/resemble/synthesizer.go
package resemble

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Synthesizer = (*Client)(nil)

type clipRequest struct {
	VoiceUUID    string `json:"voice_uuid"`
	Body         string `json:"body"`
	OutputFormat string `json:"output_format"`
	SampleRate   int    `json:"sample_rate"`
	Precision    string `json:"precision"`
}

type clip struct {
	UUID     string `json:"uuid"`
	AudioSrc string `json:"audio_src"`
}

// Synthesize creates a clip synchronously and downloads its audio.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	project, err := c.ResolveProject(ctx)
	if err != nil {
		return adapter.Audio{}, err
	}

	var env envelope
	err = c.postJSON(ctx, "/projects/"+url.PathEscape(project)+"/clips/sync", "create_clip", clipRequest{
		VoiceUUID:    voiceID,
		Body:         text,
		OutputFormat: "wav",
		SampleRate:   c.sampleRate,
		Precision:    c.precision,
	}, &env)
	if err != nil {
		return adapter.Audio{}, err
	}
	if err := checkEnvelope("create_clip", env.Success, env.Message); err != nil {
		return adapter.Audio{}, err
	}

	var item clip
	if err := json.Unmarshal(env.Item, &item); err != nil || item.AudioSrc == "" {
		return adapter.Audio{}, &adapter.ProviderError{Provider: providerName, Op: "create_clip", Message: "response has no audio_src", Cause: err}
	}

	data, err := c.fetchAudio(ctx, item.AudioSrc)
	if err != nil {
		return adapter.Audio{}, err
	}
	return adapter.Audio{Data: data, Format: "wav"}, nil
}

// fetchAudio downloads a clip from its (pre-signed) audio_src URL. The URL
// is not an API route, so no auth header is sent.
func (c *Client) fetchAudio(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, &adapter.ProviderError{Provider: providerName, Op: "download_clip", Message: "bad audio_src", Cause: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &adapter.ProviderError{Provider: providerName, Op: "download_clip", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &adapter.ProviderError{Provider: providerName, Op: "download_clip", StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &adapter.ProviderError{Provider: providerName, Op: "download_clip", Cause: err}
	}
	if len(data) == 0 {
		return nil, &adapter.ProviderError{Provider: providerName, Op: "download_clip", Cause: errors.New("empty audio body")}
	}
	return data, nil
}
