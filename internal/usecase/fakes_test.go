//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"echobook/internal/domain"
	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/worker"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- TextExtractor ----

type fakeExtractor struct {
	chunks []model.Chunk
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) ([]model.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return f.chunks, nil
}

// panickingExtractor mimics a parser that blows up on malformed input.
type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, string) ([]model.Chunk, error) {
	panic("malformed xref")
}

// ---- Synthesizer ----

// recordingSynth returns "<voice>:<text>" as audio and remembers call order.
type recordingSynth struct {
	mu     sync.Mutex
	calls  []string
	failOn string // text that triggers a failure
}

func (s *recordingSynth) Name() string { return "fake" }

func (s *recordingSynth) Synthesize(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.failOn != "" && text == s.failOn {
		return adapter.Audio{}, &adapter.ProviderError{Provider: "fake", Op: "speech", StatusCode: 500, Message: "boom"}
	}
	return adapter.Audio{Data: []byte(voiceID + ":" + text), Format: "wav"}, nil
}

func (s *recordingSynth) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ---- AudioAssembler ----

// concatAssembler joins segment bytes with '|' so tests can read the order back.
type concatAssembler struct {
	err error
}

func (a *concatAssembler) Format() string { return "wav" }

func (a *concatAssembler) Assemble(ctx context.Context, segmentPaths []string, outPath string) error {
	if a.err != nil {
		return a.err
	}
	parts := make([]string, 0, len(segmentPaths))
	for _, p := range segmentPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		parts = append(parts, string(b))
	}
	return os.WriteFile(outPath, []byte(strings.Join(parts, "|")), 0o644)
}

// ---- ArtifactStore ----

// pathStore keeps artifacts where the pipeline wrote them.
type pathStore struct{}

func (pathStore) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	return localPath, nil
}

func (pathStore) Stat(ctx context.Context, key string) (adapter.ObjectInfo, error) {
	fi, err := os.Stat(key)
	if err != nil {
		return adapter.ObjectInfo{}, domain.ErrNotFound
	}
	return adapter.ObjectInfo{Key: key, Size: fi.Size(), ContentType: "audio/wav"}, nil
}

func (pathStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(key)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

// ---- TaskSubmitter ----

// inlinePool runs tasks synchronously, or rejects them when err is set.
type inlinePool struct {
	err error
}

func (p *inlinePool) Submit(task worker.Task) error {
	if p.err != nil {
		return p.err
	}
	return task(context.Background())
}

// heldPool queues tasks until Release, so tests can observe in-flight jobs.
type heldPool struct {
	mu    sync.Mutex
	tasks []worker.Task
}

func (p *heldPool) Submit(task worker.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *heldPool) Release() {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()
	for _, t := range tasks {
		_ = t(context.Background())
	}
}

// ---- VoiceProvider / SampleNormalizer ----

type fakeVoiceProvider struct {
	mu        sync.Mutex
	calls     []string
	voices    []model.Voice
	listErr   error
	failStep  string
	failTake  int
	uploadsOK int
}

func (f *fakeVoiceProvider) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeVoiceProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeVoiceProvider) ListVoices(ctx context.Context, page, pageSize int) (*model.VoicePage, error) {
	f.record(fmt.Sprintf("list:%d:%d", page, pageSize))
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &model.VoicePage{Page: page, PageSize: pageSize, NumPages: 1, Items: f.voices}, nil
}

func (f *fakeVoiceProvider) CreateVoice(ctx context.Context, name string) (string, error) {
	f.record("create:" + name)
	if f.failStep == "create" {
		return "", errors.New("create refused")
	}
	return "voice-new", nil
}

func (f *fakeVoiceProvider) UploadRecording(ctx context.Context, voiceID, name, audioPath string) error {
	f.record("upload:" + name)
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("sample not readable: %w", err)
	}
	f.mu.Lock()
	f.uploadsOK++
	n := f.uploadsOK
	f.mu.Unlock()
	if f.failStep == "upload" && n == f.failTake {
		return errors.New("upload refused")
	}
	return nil
}

func (f *fakeVoiceProvider) BuildVoice(ctx context.Context, voiceID string) error {
	f.record("build:" + voiceID)
	if f.failStep == "build" {
		return errors.New("build refused")
	}
	return nil
}

// copyNormalizer writes the sample as normalized.wav next to it and records the scratch dir.
type copyNormalizer struct {
	dirs []string
	err  error
}

func (n *copyNormalizer) Normalize(ctx context.Context, srcPath, dir string, target adapter.SampleFormat) (string, error) {
	n.dirs = append(n.dirs, dir)
	if n.err != nil {
		return "", n.err
	}
	b, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, "normalized.wav")
	return out, os.WriteFile(out, b, 0o644)
}
