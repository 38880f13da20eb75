package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echobook/internal/domain"
	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/domain/ports/repository"
	"echobook/internal/infra/logging"
	"echobook/internal/infra/metrics"
	"echobook/internal/infra/worker"
)

const (
	submitMessage    = "processing your req, please wait for a bit"
	sourceFileName   = "source.pdf"
	downloadBaseName = "audio_book"
)

// Upload is a document handed to the dispatcher.
type Upload struct {
	FileName string
	Body     io.Reader
	VoiceID  string
}

type SubmitResult struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
	VoiceID string `json:"voice_uuid"`
}

// Artifact is a finished audiobook ready to stream. The caller closes Body.
type Artifact struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	FileName    string
}

// TaskSubmitter is the background executor jobs are handed to.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// JobUseCase accepts documents for conversion and serves job state and results.
type JobUseCase interface {
	Submit(ctx context.Context, up Upload) (*SubmitResult, error)
	Status(ctx context.Context, jobID string) (*model.Job, error)
	Download(ctx context.Context, jobID string) (*Artifact, error)
}

type jobUC struct {
	jobs         repository.JobRegistry
	conversion   ConversionUseCase
	store        adapter.ArtifactStore
	pool         TaskSubmitter
	jobsDir      string
	defaultVoice string
	log          *zerolog.Logger
}

func NewJobUseCase(
	jobs repository.JobRegistry,
	conversion ConversionUseCase,
	store adapter.ArtifactStore,
	pool TaskSubmitter,
	jobsDir string,
	defaultVoice string,
	logger *zerolog.Logger,
) *jobUC {
	return &jobUC{
		jobs:         jobs,
		conversion:   conversion,
		store:        store,
		pool:         pool,
		jobsDir:      jobsDir,
		defaultVoice: defaultVoice,
		log:          logger,
	}
}

func (u *jobUC) Submit(ctx context.Context, up Upload) (*SubmitResult, error) {
	defer logging.TraceDuration(u.log, "JobUC.Submit")()

	if !strings.EqualFold(filepath.Ext(up.FileName), ".pdf") {
		return nil, fmt.Errorf("%w: we only support .pdf for now", domain.ErrInvalidInput)
	}
	if up.Body == nil {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	voice := strings.TrimSpace(up.VoiceID)
	if voice == "" {
		voice = u.defaultVoice
	}

	id := uuid.NewString()
	dir := filepath.Join(u.jobsDir, id)
	src := filepath.Join(dir, sourceFileName)
	if err := persistUpload(dir, src, up.Body); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("persist upload: %w", err)
	}

	if err := u.jobs.Create(ctx, id, voice); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	metrics.IncJobSubmitted()

	ctx = logging.WithJobID(ctx, id)
	log := logging.With(ctx, u.log)
	req := Request{JobID: id, SourcePath: src, OutputDir: dir, VoiceID: voice}
	err := u.pool.Submit(func(ctx context.Context) error {
		return u.conversion.Execute(ctx, req)
	})
	if err != nil {
		log.Error().Err(err).Msg("could not schedule conversion")
		if serr := u.jobs.SetTerminal(ctx, id, model.Failed("could not schedule job: "+err.Error())); serr != nil {
			log.Error().Err(serr).Msg("failed to record scheduling failure")
		}
	} else {
		log.Info().Str("file", up.FileName).Str("voice_uuid", voice).Msg("conversion job queued")
	}

	return &SubmitResult{Message: submitMessage, JobID: id, VoiceID: voice}, nil
}

func persistUpload(dir, dst string, body io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeFile(dst, body)
}

func (u *jobUC) Status(ctx context.Context, jobID string) (*model.Job, error) {
	return u.jobs.Get(ctx, jobID)
}

func (u *jobUC) Download(ctx context.Context, jobID string) (*Artifact, error) {
	job, err := u.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusDone {
		return nil, domain.ErrJobNotReady
	}

	info, err := u.store.Stat(ctx, job.OutputPath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrArtifactMissing
		}
		return nil, err
	}
	body, err := u.store.Open(ctx, job.OutputPath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrArtifactMissing
		}
		return nil, err
	}

	ext := filepath.Ext(job.OutputPath)
	ct := info.ContentType
	if ct == "" {
		ct = contentTypeFor(strings.TrimPrefix(ext, "."))
	}
	return &Artifact{Body: body, Size: info.Size, ContentType: ct, FileName: downloadBaseName + ext}, nil
}
