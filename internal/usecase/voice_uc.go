package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"echobook/internal/config"
	"echobook/internal/domain"
	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/logging"
	"echobook/internal/infra/metrics"
)

const cloneMessage = "voice created, training has started"

type CloneRequest struct {
	Name     string
	FileName string
	Body     io.Reader
}

type CloneResult struct {
	Message string `json:"message"`
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
}

type VoiceOptions struct {
	AllowedExtensions []string
	UploadTakes       int
	Target            adapter.SampleFormat
	// TempDir is where per-request scratch dirs are made; empty = os.TempDir().
	TempDir string
}

// Compile-time check
var _ VoiceUseCase = (*voiceUC)(nil)

// VoiceUseCase registers custom voices and lists the provider's voices.
type VoiceUseCase interface {
	Clone(ctx context.Context, req CloneRequest) (*CloneResult, error)
	List(ctx context.Context, page, pageSize int) (*model.VoicePage, error)
}

type voiceUC struct {
	provider   adapter.VoiceProvider
	normalizer adapter.SampleNormalizer
	opts       VoiceOptions
	log        *zerolog.Logger
}

func NewVoiceUseCase(provider adapter.VoiceProvider, normalizer adapter.SampleNormalizer, opts VoiceOptions, logger *zerolog.Logger) *voiceUC {
	if opts.UploadTakes <= 0 {
		opts.UploadTakes = 3
	}
	allowed := make([]string, 0, len(opts.AllowedExtensions))
	for _, e := range opts.AllowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed = append(allowed, e)
	}
	opts.AllowedExtensions = allowed
	return &voiceUC{provider: provider, normalizer: normalizer, opts: opts, log: logger}
}

// Clone runs normalize, create, upload (UploadTakes times) and build in that
// order. A failed step stops the workflow; remote state already created is
// left as is.
func (v *voiceUC) Clone(ctx context.Context, req CloneRequest) (*CloneResult, error) {
	defer logging.TraceDuration(v.log, "VoiceUC.Clone")()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: voice name is required", domain.ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !slices.Contains(v.opts.AllowedExtensions, ext) {
		return nil, fmt.Errorf("%w: unsupported audio format %q, allowed: %s",
			domain.ErrInvalidInput, ext, strings.Join(v.opts.AllowedExtensions, " "))
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}

	tmp, err := os.MkdirTemp(v.opts.TempDir, "echobook-voice-*")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch dir: %w", domain.ErrWorkflowFailed, err)
	}
	defer os.RemoveAll(tmp)

	src := filepath.Join(tmp, "sample"+ext)
	if err := writeFile(src, req.Body); err != nil {
		return nil, fmt.Errorf("%w: save sample: %w", domain.ErrWorkflowFailed, err)
	}

	sample, err := v.normalizer.Normalize(ctx, src, tmp, v.opts.Target)
	if err := v.step("normalize", err); err != nil {
		return nil, err
	}

	voiceID, err := v.provider.CreateVoice(ctx, name)
	if err := v.step("create", err); err != nil {
		return nil, err
	}
	log := logging.With(logging.WithVoiceID(ctx, voiceID), v.log)
	log.Info().Str("name", name).Msg("voice created")

	for i := 1; i <= v.opts.UploadTakes; i++ {
		take := fmt.Sprintf("%s-take-%d", name, i)
		err := v.provider.UploadRecording(ctx, voiceID, take, sample)
		if err := v.step("upload", err); err != nil {
			return nil, err
		}
	}

	err = v.provider.BuildVoice(ctx, voiceID)
	if err := v.step("build", err); err != nil {
		return nil, err
	}
	log.Info().Int("takes", v.opts.UploadTakes).Msg("voice training started")

	return &CloneResult{Message: cloneMessage, VoiceID: voiceID, Name: name, Status: model.VoiceStatusTraining}, nil
}

// step records the outcome of one workflow step and wraps failures.
func (v *voiceUC) step(name string, err error) error {
	if err != nil {
		metrics.IncVoiceStep(name, "error")
		v.log.Error().Err(err).Str("step", name).Msg("voice workflow step failed")
		return fmt.Errorf("%w: %s: %w", domain.ErrWorkflowFailed, name, err)
	}
	metrics.IncVoiceStep(name, "ok")
	return nil
}

func writeFile(dst string, body io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (v *voiceUC) List(ctx context.Context, page, pageSize int) (*model.VoicePage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return v.provider.ListVoices(ctx, page, pageSize)
}

// ResolveDefaultVoice picks the voice used when an upload names none: the
// configured one, else the first voice the provider lists.
func ResolveDefaultVoice(ctx context.Context, cfg config.ProviderConfig, provider adapter.VoiceProvider) (string, error) {
	if v := strings.TrimSpace(cfg.DefaultVoice); v != "" {
		return v, nil
	}
	page, err := provider.ListVoices(ctx, 1, 10)
	if err != nil {
		return "", fmt.Errorf("resolve default voice: %w", err)
	}
	for _, voice := range page.Items {
		if voice.ID != "" {
			return voice.ID, nil
		}
	}
	return "", errors.New("resolve default voice: provider lists no voices and provider.default_voice is unset")
}
