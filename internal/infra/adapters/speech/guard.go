// File: internal/infra/adapters/speech/guard.go
package speech

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/metrics"
)

// Compile-time check
var _ adapter.Synthesizer = (*guarded)(nil)

// GuardOptions bound the pressure put on a synthesis provider.
type GuardOptions struct {
	// MaxConcurrent caps in-flight calls across all jobs; 0 = unlimited.
	MaxConcurrent int
	// RatePerSecond is a token-bucket rate; 0 = unlimited.
	RatePerSecond float64
	// MaxRetries is how many times a retryable failure is repeated; 0 = fail fast.
	MaxRetries int
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration
}

type guarded struct {
	inner   adapter.Synthesizer
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	opts    GuardOptions
	log     *zerolog.Logger
}

// NewGuarded wraps inner with a concurrency cap, a rate limit and optional
// retries. Every attempt is recorded in the synthesis metrics.
func NewGuarded(inner adapter.Synthesizer, opts GuardOptions, log *zerolog.Logger) adapter.Synthesizer {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "speech_guard").Str("provider", inner.Name()).Logger()
	g := &guarded{inner: inner, opts: opts, log: &l}
	if opts.MaxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	if g.opts.InitialBackoff <= 0 {
		g.opts.InitialBackoff = 500 * time.Millisecond
	}
	return g
}

func (g *guarded) Name() string { return g.inner.Name() }

func (g *guarded) Synthesize(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return adapter.Audio{}, err
		}
		defer g.sem.Release(1)
	}

	if g.opts.MaxRetries <= 0 {
		return g.attempt(ctx, text, voiceID)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.opts.InitialBackoff
	return backoff.Retry(ctx, func() (adapter.Audio, error) {
		out, err := g.attempt(ctx, text, voiceID)
		if err != nil && !retryable(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(g.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.IncSynthesisRetry(g.inner.Name())
			g.log.Warn().Err(err).Dur("wait", wait).Msg("retrying synthesis")
		}),
	)
}

func (g *guarded) attempt(ctx context.Context, text, voiceID string) (adapter.Audio, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return adapter.Audio{}, err
		}
	}
	start := time.Now()
	out, err := g.inner.Synthesize(ctx, text, voiceID)
	metrics.ObserveSynthesis(g.inner.Name(), time.Since(start), err == nil)
	return out, err
}

func retryable(err error) bool {
	var perr *adapter.ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return false
}
