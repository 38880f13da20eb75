// File: internal/infra/adapters/resemble/voices.go
package resemble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.VoiceProvider = (*Client)(nil)

type voiceItem struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (v voiceItem) toModel() model.Voice {
	return model.Voice{ID: v.UUID, Name: v.Name, Status: v.Status}
}

func (c *Client) ListVoices(ctx context.Context, page, pageSize int) (*model.VoicePage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	path := fmt.Sprintf("/voices?page=%d&page_size=%d", page, pageSize)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var env pageEnvelope
	if err := c.do(req, "list_voices", &env); err != nil {
		return nil, err
	}
	var items []voiceItem
	if len(env.Items) > 0 {
		if err := json.Unmarshal(env.Items, &items); err != nil {
			return nil, &adapter.ProviderError{Provider: providerName, Op: "list_voices", Message: "malformed items", Cause: err}
		}
	}
	out := &model.VoicePage{
		Page:     env.Page,
		NumPages: env.NumPages,
		PageSize: env.PageSize,
		Items:    make([]model.Voice, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, it.toModel())
	}
	return out, nil
}

func (c *Client) CreateVoice(ctx context.Context, name string) (string, error) {
	var env envelope
	if err := c.postJSON(ctx, "/voices", "create_voice", map[string]string{"name": name}, &env); err != nil {
		return "", err
	}
	if err := checkEnvelope("create_voice", env.Success, env.Message); err != nil {
		return "", err
	}
	var item voiceItem
	if err := json.Unmarshal(env.Item, &item); err != nil || item.UUID == "" {
		return "", &adapter.ProviderError{Provider: providerName, Op: "create_voice", Message: "response has no voice uuid", Cause: err}
	}
	return item.UUID, nil
}

// UploadRecording attaches one training recording to the voice.
func (c *Client) UploadRecording(ctx context.Context, voiceID, name, audioPath string) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	fields := map[string]string{
		"name":      name,
		"text":      name,
		"emotion":   "neutral",
		"is_active": "true",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/voices/"+url.PathEscape(voiceID)+"/recordings", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var env envelope
	if err := c.do(req, "upload_recording", &env); err != nil {
		return err
	}
	return checkEnvelope("upload_recording", env.Success, env.Message)
}

// BuildVoice starts training. Completion is not awaited.
func (c *Client) BuildVoice(ctx context.Context, voiceID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/voices/"+url.PathEscape(voiceID)+"/build", nil)
	if err != nil {
		return err
	}
	var env envelope
	if err := c.do(req, "build_voice", &env); err != nil {
		return err
	}
	return checkEnvelope("build_voice", env.Success, env.Message)
}
