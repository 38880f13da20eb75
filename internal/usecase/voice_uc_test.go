//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"echobook/internal/config"
	"echobook/internal/domain"
	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/usecase"
)

func newVoiceUC(p *fakeVoiceProvider, n *copyNormalizer, takes int) usecase.VoiceUseCase {
	return usecase.NewVoiceUseCase(p, n, usecase.VoiceOptions{
		AllowedExtensions: []string{".wav", "mp3", ".M4A"},
		UploadTakes:       takes,
		Target:            adapter.SampleFormat{SampleRate: 22050, Channels: 1, BitDepth: 16},
	}, newTestLogger())
}

func TestVoiceUseCase_Clone_CallSequence(t *testing.T) {
	p := &fakeVoiceProvider{}
	n := &copyNormalizer{}
	uc := newVoiceUC(p, n, 3)

	res, err := uc.Clone(context.Background(), usecase.CloneRequest{
		Name: "Narrator", FileName: "me.WAV", Body: strings.NewReader("RIFF"),
	})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	want := []string{
		"create:Narrator",
		"upload:Narrator-take-1",
		"upload:Narrator-take-2",
		"upload:Narrator-take-3",
		"build:voice-new",
	}
	if got := p.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected provider calls:\n got %v\nwant %v", got, want)
	}
	if res.VoiceID != "voice-new" || res.Status != model.VoiceStatusTraining || res.Name != "Narrator" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(n.dirs) != 1 {
		t.Fatalf("expected one normalization, got %d", len(n.dirs))
	}
	if _, err := os.Stat(n.dirs[0]); !os.IsNotExist(err) {
		t.Fatal("scratch dir must be removed after success")
	}
}

func TestVoiceUseCase_Clone_ConfigurableTakes(t *testing.T) {
	p := &fakeVoiceProvider{}
	uc := newVoiceUC(p, &copyNormalizer{}, 1)

	if _, err := uc.Clone(context.Background(), usecase.CloneRequest{Name: "A", FileName: "a.mp3", Body: strings.NewReader("x")}); err != nil {
		t.Fatal(err)
	}
	uploads := 0
	for _, c := range p.Calls() {
		if strings.HasPrefix(c, "upload:") {
			uploads++
		}
	}
	if uploads != 1 {
		t.Fatalf("expected 1 upload, got %d", uploads)
	}
}

func TestVoiceUseCase_Clone_InvalidInputMakesNoRemoteCalls(t *testing.T) {
	tests := []struct {
		name string
		req  usecase.CloneRequest
	}{
		{"unsupported extension", usecase.CloneRequest{Name: "A", FileName: "voice.aiff", Body: strings.NewReader("x")}},
		{"no extension", usecase.CloneRequest{Name: "A", FileName: "voice", Body: strings.NewReader("x")}},
		{"empty name", usecase.CloneRequest{Name: "  ", FileName: "voice.wav", Body: strings.NewReader("x")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeVoiceProvider{}
			n := &copyNormalizer{}
			_, err := newVoiceUC(p, n, 3).Clone(context.Background(), tc.req)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if len(p.Calls()) != 0 || len(n.dirs) != 0 {
				t.Fatalf("no work expected, provider calls %v", p.Calls())
			}
		})
	}
}

func TestVoiceUseCase_Clone_StepFailures(t *testing.T) {
	tests := []struct {
		name      string
		provider  *fakeVoiceProvider
		normErr   error
		wantCalls []string
	}{
		{
			name:      "normalize",
			provider:  &fakeVoiceProvider{},
			normErr:   errors.New("ffmpeg missing"),
			wantCalls: nil,
		},
		{
			name:      "create",
			provider:  &fakeVoiceProvider{failStep: "create"},
			wantCalls: []string{"create:N"},
		},
		{
			name:      "second upload",
			provider:  &fakeVoiceProvider{failStep: "upload", failTake: 2},
			wantCalls: []string{"create:N", "upload:N-take-1", "upload:N-take-2"},
		},
		{
			name:      "build",
			provider:  &fakeVoiceProvider{failStep: "build"},
			wantCalls: []string{"create:N", "upload:N-take-1", "upload:N-take-2", "upload:N-take-3", "build:voice-new"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := &copyNormalizer{err: tc.normErr}
			_, err := newVoiceUC(tc.provider, n, 3).Clone(context.Background(),
				usecase.CloneRequest{Name: "N", FileName: "n.wav", Body: strings.NewReader("x")})
			if !errors.Is(err, domain.ErrWorkflowFailed) {
				t.Fatalf("expected ErrWorkflowFailed, got %v", err)
			}
			if got := tc.provider.Calls(); !reflect.DeepEqual(got, tc.wantCalls) {
				t.Fatalf("calls:\n got %v\nwant %v", got, tc.wantCalls)
			}
			if _, err := os.Stat(n.dirs[0]); !os.IsNotExist(err) {
				t.Fatal("scratch dir must be removed after failure")
			}
		})
	}
}

func TestVoiceUseCase_List_Defaults(t *testing.T) {
	p := &fakeVoiceProvider{voices: []model.Voice{{ID: "v1", Name: "One"}}}
	uc := newVoiceUC(p, &copyNormalizer{}, 3)

	page, err := uc.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || p.Calls()[0] != "list:1:20" {
		t.Fatalf("unexpected listing %+v calls %v", page, p.Calls())
	}
}

func TestResolveDefaultVoice(t *testing.T) {
	ctx := context.Background()

	t.Run("configured voice wins without remote call", func(t *testing.T) {
		p := &fakeVoiceProvider{voices: []model.Voice{{ID: "first"}}}
		v, err := usecase.ResolveDefaultVoice(ctx, config.ProviderConfig{DefaultVoice: "cfg"}, p)
		if err != nil || v != "cfg" {
			t.Fatalf("got %q, %v", v, err)
		}
		if len(p.Calls()) != 0 {
			t.Fatal("provider must not be queried")
		}
	})

	t.Run("falls back to first listed voice", func(t *testing.T) {
		p := &fakeVoiceProvider{voices: []model.Voice{{ID: "first"}, {ID: "second"}}}
		v, err := usecase.ResolveDefaultVoice(ctx, config.ProviderConfig{}, p)
		if err != nil || v != "first" {
			t.Fatalf("got %q, %v", v, err)
		}
	})

	t.Run("no voice at all refuses", func(t *testing.T) {
		if _, err := usecase.ResolveDefaultVoice(ctx, config.ProviderConfig{}, &fakeVoiceProvider{}); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("listing failure refuses", func(t *testing.T) {
		p := &fakeVoiceProvider{listErr: errors.New("unauthorized")}
		if _, err := usecase.ResolveDefaultVoice(ctx, config.ProviderConfig{}, p); err == nil {
			t.Fatal("expected an error")
		}
	})
}
