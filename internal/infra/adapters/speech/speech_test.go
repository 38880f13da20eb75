//go:build !integration

package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/adapters/audio"
)

type scriptedSynth struct {
	mu       sync.Mutex
	errs     []error
	calls    int
	inflight int32
	peak     int32
	delay    time.Duration
}

func (s *scriptedSynth) Name() string { return "fake" }

func (s *scriptedSynth) Synthesize(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	n := atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return adapter.Audio{}, s.errs[i]
	}
	return adapter.Audio{Data: []byte(text), Format: "wav"}, nil
}

func TestGuarded_FailFastByDefault(t *testing.T) {
	inner := &scriptedSynth{errs: []error{&adapter.ProviderError{Provider: "fake", StatusCode: 503}}}
	g := NewGuarded(inner, GuardOptions{}, nil)

	_, err := g.Synthesize(context.Background(), "hi", "v")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestGuarded_RetriesRetryableErrors(t *testing.T) {
	inner := &scriptedSynth{errs: []error{
		&adapter.ProviderError{Provider: "fake", StatusCode: 503},
		&adapter.ProviderError{Provider: "fake", StatusCode: 429},
	}}
	g := NewGuarded(inner, GuardOptions{MaxRetries: 2, InitialBackoff: time.Millisecond}, nil)

	out, err := g.Synthesize(context.Background(), "hi", "v")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(out.Data))
	assert.Equal(t, 3, inner.calls)
}

func TestGuarded_DoesNotRetryPermanentErrors(t *testing.T) {
	inner := &scriptedSynth{errs: []error{&adapter.ProviderError{Provider: "fake", StatusCode: 400}}}
	g := NewGuarded(inner, GuardOptions{MaxRetries: 3, InitialBackoff: time.Millisecond}, nil)

	_, err := g.Synthesize(context.Background(), "hi", "v")
	var perr *adapter.ProviderError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, 400, perr.StatusCode)
	assert.Equal(t, 1, inner.calls)
}

func TestGuarded_CapsConcurrency(t *testing.T) {
	inner := &scriptedSynth{delay: 20 * time.Millisecond}
	g := NewGuarded(inner, GuardOptions{MaxConcurrent: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Synthesize(context.Background(), "x", "v")
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&inner.peak), int32(2))
}

func TestStaticVoices_Pages(t *testing.T) {
	s := NewStaticVoices("openai", OpenAIVoices)

	p, err := s.ListVoices(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumPages)
	require.Len(t, p.Items, 4)
	assert.Equal(t, "alloy", p.Items[0].ID)

	p, _ = s.ListVoices(context.Background(), 3, 4)
	assert.Len(t, p.Items, 2)

	p, _ = s.ListVoices(context.Background(), 9, 4)
	assert.Empty(t, p.Items)

	_, err = s.CreateVoice(context.Background(), "mine")
	assert.Error(t, err)
}

func TestOpenAISynthesizer_Speech(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"voice":"nova"`)
		assert.Contains(t, string(body), `"response_format":"wav"`)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	s, err := NewOpenAISynthesizer("sk-test", srv.URL, "", time.Second)
	require.NoError(t, err)

	out, err := s.Synthesize(context.Background(), "hello", "nova")
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(out.Data))
	assert.Equal(t, "/audio/speech", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestOpenAISynthesizer_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	}))
	defer srv.Close()

	s, err := NewOpenAISynthesizer("sk-test", srv.URL, "", time.Second)
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), "hello", "nova")
	var perr *adapter.ProviderError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.True(t, perr.Retryable())
}

func TestGeminiSynthesizer_Speech(t *testing.T) {
	first := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})
	second := base64.StdEncoding.EncodeToString([]byte{3, 0, 4, 0})

	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath, gotKey, gotBody = r.URL.Path, r.Header.Get("x-goog-api-key"), string(body)
		if gotKey == "" {
			gotKey = r.URL.Query().Get("key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[`+
			`{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"`+first+`"}},`+
			`{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"`+second+`"}}]}}]}`)
	}))
	defer srv.Close()

	s, err := NewGeminiSynthesizer(context.Background(), "g-test", srv.URL, "tts-model", time.Second)
	require.NoError(t, err)

	out, err := s.Synthesize(context.Background(), "hello", "Puck")
	require.NoError(t, err)
	assert.Equal(t, "wav", out.Format)
	assert.True(t, strings.HasSuffix(gotPath, "/models/tts-model:generateContent"), "path %s", gotPath)
	assert.Equal(t, "g-test", gotKey)
	assert.Contains(t, gotBody, `"voiceName":"Puck"`)
	assert.Contains(t, gotBody, `"AUDIO"`)

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, os.WriteFile(path, out.Data, 0o644))
	f, err := audio.ProbeWAV(path)
	require.NoError(t, err)
	assert.True(t, f.Matches(24000, 1, 16), "got %+v", f)
	assert.Len(t, out.Data, 44+8, "both inline parts must be concatenated")
}

func TestGeminiSynthesizer_DefaultVoice(t *testing.T) {
	pcm := base64.StdEncoding.EncodeToString([]byte{0, 0})
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"`+pcm+`"}}]}}]}`)
	}))
	defer srv.Close()

	s, err := NewGeminiSynthesizer(context.Background(), "g-test", srv.URL, "", time.Second)
	require.NoError(t, err)
	_, err = s.Synthesize(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Contains(t, gotBody, `"voiceName":"Kore"`)
}

func TestGeminiSynthesizer_NoAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"no audio here"}]}}]}`)
	}))
	defer srv.Close()

	s, err := NewGeminiSynthesizer(context.Background(), "g-test", srv.URL, "", time.Second)
	require.NoError(t, err)
	_, err = s.Synthesize(context.Background(), "hello", "Kore")
	var perr *adapter.ProviderError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Contains(t, perr.Message, "no audio")
	assert.False(t, perr.Retryable())
}

func TestGeminiSynthesizer_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"unknown voice","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	s, err := NewGeminiSynthesizer(context.Background(), "g-test", srv.URL, "", time.Second)
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), "hello", "Nobody")
	var perr *adapter.ProviderError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, "gemini", perr.Provider)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Contains(t, perr.Message, "unknown voice")
	assert.False(t, perr.Retryable())
}

func TestNewSynthesizers_RequireKeys(t *testing.T) {
	_, err := NewOpenAISynthesizer("", "", "", 0)
	assert.Error(t, err)
	_, err = NewGeminiSynthesizer(context.Background(), "", "", "", 0)
	assert.Error(t, err)
}
