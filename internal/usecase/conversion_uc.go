package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"echobook/internal/domain"
	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/domain/ports/repository"
	"echobook/internal/infra/logging"
	"echobook/internal/infra/metrics"
)

// Pipeline stages, reported in PipelineError.
const (
	StageExtract    = "extract"
	StageSynthesize = "synthesize"
	StageAssemble   = "assemble"
	StagePublish    = "publish"
)

var errNoText = errors.New("document has no readable text")

// PipelineError is a stage-aware conversion failure. Page is set for
// per-page stages.
type PipelineError struct {
	Stage string
	Page  int
	Err   error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Page > 0 {
		return fmt.Sprintf("%s page %d: %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes every PipelineError match domain.ErrPipelineFailure.
func (e *PipelineError) Is(target error) bool { return target == domain.ErrPipelineFailure }

// Request is one conversion: the persisted source and where to write.
type Request struct {
	JobID      string
	SourcePath string
	OutputDir  string
	VoiceID    string
}

// Result of a successful conversion.
type Result struct {
	// OutputPath is the artifact locator returned by the store.
	OutputPath string
	Pages      int
	Segments   []model.Segment
}

// Compile-time check
var _ ConversionUseCase = (*conversionUC)(nil)

// ConversionUseCase turns a document into one narrated audio artifact.
type ConversionUseCase interface {
	// Run executes the pipeline without touching job state.
	Run(ctx context.Context, req Request) (Result, error)
	// Execute runs the pipeline and records the job's single terminal outcome.
	Execute(ctx context.Context, req Request) error
}

type ConversionOptions struct {
	// Concurrency bounds parallel page synthesis within one job; <= 1 is sequential.
	Concurrency int
}

type conversionUC struct {
	extractor adapter.TextExtractor
	synth     adapter.Synthesizer
	assembler adapter.AudioAssembler
	store     adapter.ArtifactStore
	jobs      repository.JobRegistry
	opts      ConversionOptions
	log       *zerolog.Logger
}

func NewConversionUseCase(
	extractor adapter.TextExtractor,
	synth adapter.Synthesizer,
	assembler adapter.AudioAssembler,
	store adapter.ArtifactStore,
	jobs repository.JobRegistry,
	opts ConversionOptions,
	logger *zerolog.Logger,
) *conversionUC {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &conversionUC{
		extractor: extractor,
		synth:     synth,
		assembler: assembler,
		store:     store,
		jobs:      jobs,
		opts:      opts,
		log:       logger,
	}
}

func (c *conversionUC) Run(ctx context.Context, req Request) (Result, error) {
	defer logging.TraceDuration(c.log, "ConversionUC.Run")()
	log := logging.With(logging.WithVoiceID(logging.WithJobID(ctx, req.JobID), req.VoiceID), c.log)

	chunkDir := filepath.Join(req.OutputDir, "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return Result{}, &PipelineError{Stage: StageExtract, Err: err}
	}

	all, err := c.extractor.Extract(ctx, req.SourcePath)
	if err != nil {
		return Result{}, &PipelineError{Stage: StageExtract, Err: err}
	}
	chunks := make([]model.Chunk, 0, len(all))
	for _, ch := range all {
		if !ch.IsBlank() {
			chunks = append(chunks, ch)
		}
	}
	if len(chunks) == 0 {
		return Result{}, &PipelineError{Stage: StageExtract, Err: errNoText}
	}
	log.Info().Int("pages", len(all)).Int("speakable", len(chunks)).Msg("document extracted")

	segments, err := c.synthesizeAll(ctx, chunks, chunkDir, req.VoiceID, log)
	if err != nil {
		return Result{}, err
	}

	paths := make([]string, len(segments))
	for i, s := range segments {
		paths[i] = s.Path
	}
	name := "audiobook." + c.assembler.Format()
	outPath := filepath.Join(req.OutputDir, name)
	if err := c.assembler.Assemble(ctx, paths, outPath); err != nil {
		return Result{}, &PipelineError{Stage: StageAssemble, Err: err}
	}

	locator, err := c.store.Put(ctx, req.JobID+"/"+name, outPath, contentTypeFor(c.assembler.Format()))
	if err != nil {
		return Result{}, &PipelineError{Stage: StagePublish, Err: err}
	}
	log.Info().Str("output", locator).Int("segments", len(segments)).Msg("audiobook assembled")

	return Result{OutputPath: locator, Pages: len(segments), Segments: segments}, nil
}

// synthesizeAll renders every chunk and returns segments in ascending page order.
func (c *conversionUC) synthesizeAll(ctx context.Context, chunks []model.Chunk, dir, voiceID string, log *zerolog.Logger) ([]model.Segment, error) {
	segments := make([]model.Segment, len(chunks))

	if c.opts.Concurrency <= 1 {
		for i, ch := range chunks {
			seg, err := c.synthesizePage(ctx, ch, dir, voiceID, log)
			if err != nil {
				return nil, err
			}
			segments[i] = seg
		}
		return segments, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, ch := range chunks {
		g.Go(func() error {
			seg, err := c.synthesizePage(gctx, ch, dir, voiceID, log)
			if err != nil {
				return err
			}
			segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(segments, func(a, b int) bool { return segments[a].Page < segments[b].Page })
	return segments, nil
}

func (c *conversionUC) synthesizePage(ctx context.Context, ch model.Chunk, dir, voiceID string, log *zerolog.Logger) (model.Segment, error) {
	log.Debug().Int("page", ch.Page).Str("text", logging.Preview(ch.Text, 50)).Msg("synthesizing page")

	audio, err := c.synth.Synthesize(ctx, ch.Text, voiceID)
	if err != nil {
		return model.Segment{}, &PipelineError{Stage: StageSynthesize, Page: ch.Page, Err: err}
	}
	ext := audio.Format
	if ext == "" {
		ext = "wav"
	}
	path := filepath.Join(dir, fmt.Sprintf("page_%d.%s", ch.Page, ext))
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		return model.Segment{}, &PipelineError{Stage: StageSynthesize, Page: ch.Page, Err: err}
	}
	return model.Segment{Page: ch.Page, Path: path}, nil
}

func (c *conversionUC) Execute(ctx context.Context, req Request) error {
	ctx = logging.WithJobID(ctx, req.JobID)
	log := logging.With(ctx, c.log)
	start := time.Now()

	res, err := c.runRecovered(ctx, req)
	outcome := model.Succeeded(res.OutputPath, res.Pages)
	if err != nil {
		outcome = model.Failed(err.Error())
		log.Error().Err(err).Msg("conversion job failed")
	}
	metrics.ObserveJobFinished(string(outcome.Status), time.Since(start))

	if err := c.jobs.SetTerminal(ctx, req.JobID, outcome); err != nil {
		return fmt.Errorf("record outcome of job %s: %w", req.JobID, err)
	}
	log.Info().Str("status", string(outcome.Status)).Dur("duration", time.Since(start)).Msg("conversion job finished")
	return nil
}

// runRecovered turns a panic in a collaborator into a job failure so the
// terminal write still happens.
func (c *conversionUC) runRecovered(ctx context.Context, req Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("conversion panicked: %v", r)
		}
	}()
	return c.Run(ctx, req)
}

func contentTypeFor(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
