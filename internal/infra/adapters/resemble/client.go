// File: internal/infra/adapters/resemble/client.go
package resemble

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"echobook/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

const (
	providerName   = "resemble"
	defaultBaseURL = "https://app.resemble.ai/api/v2"
	defaultTimeout = 120 * time.Second
	// bytes of a failed response body kept in the error
	maxErrorBody = 2048
)

// Client talks to the Resemble v2 REST API. It serves both clip synthesis
// and voice management.
type Client struct {
	apiKey      string
	baseURL     string
	projectMu   sync.Mutex
	projectUUID string
	sampleRate  int
	precision   string
	httpClient  *http.Client
	log         *zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithProject pins the project clips are created in. Without it the first
// project of the account is used, see ResolveProject.
func WithProject(uuid string) Option {
	return func(c *Client) { c.projectUUID = uuid }
}

func WithClipFormat(sampleRate int, precision string) Option {
	return func(c *Client) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
		if precision != "" {
			c.precision = precision
		}
	}
}

func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			sub := l.With().Str("component", "resemble").Logger()
			c.log = &sub
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("resemble: empty api key")
	}
	nop := zerolog.Nop()
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		sampleRate: 22050,
		precision:  "PCM_16",
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return providerName }

// ProjectUUID returns the project clips are created in, empty until resolved.
func (c *Client) ProjectUUID() string {
	c.projectMu.Lock()
	defer c.projectMu.Unlock()
	return c.projectUUID
}

// envelope is the common Resemble response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Item    json.RawMessage `json:"item"`
}

type pageEnvelope struct {
	Success  bool            `json:"success"`
	Page     int             `json:"page"`
	NumPages int             `json:"num_pages"`
	PageSize int             `json:"page_size"`
	Items    json.RawMessage `json:"items"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token token="+c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses
// and transport failures come back as *adapter.ProviderError.
func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &adapter.ProviderError{Provider: providerName, Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("resemble call failed")
		return &adapter.ProviderError{
			Provider:   providerName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(b)),
		}
	}
	c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("resemble call")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &adapter.ProviderError{Provider: providerName, Op: op, Message: "malformed response", Cause: err}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, op string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op, out)
}

// checkEnvelope turns a 2xx response with success=false into a provider error.
func checkEnvelope(op string, ok bool, message string) error {
	if ok {
		return nil
	}
	if message == "" {
		message = "request was not successful"
	}
	return &adapter.ProviderError{Provider: providerName, Op: op, Message: message}
}

type project struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// ResolveProject picks the first project of the account unless one is
// already configured.
func (c *Client) ResolveProject(ctx context.Context) (string, error) {
	c.projectMu.Lock()
	defer c.projectMu.Unlock()
	if c.projectUUID != "" {
		return c.projectUUID, nil
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/projects?page=1&page_size=10", nil)
	if err != nil {
		return "", err
	}
	var env pageEnvelope
	if err := c.do(req, "list_projects", &env); err != nil {
		return "", err
	}
	var items []project
	if err := json.Unmarshal(env.Items, &items); err != nil {
		return "", &adapter.ProviderError{Provider: providerName, Op: "list_projects", Message: "malformed items", Cause: err}
	}
	if len(items) == 0 || items[0].UUID == "" {
		return "", fmt.Errorf("resemble: account has no projects")
	}
	c.projectUUID = items[0].UUID
	c.log.Info().Str("project_uuid", c.projectUUID).Msg("resemble project resolved")
	return c.projectUUID, nil
}
