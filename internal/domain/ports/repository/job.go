package repository

import (
	"context"

	"echobook/internal/domain/model"
)

// JobRegistry is the single source of truth for job state.
// Implementations must tolerate concurrent reads racing one writer per key
// and concurrent writers on distinct keys.
type JobRegistry interface {
	Create(ctx context.Context, jobID, voiceID string) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	// SetTerminal performs the one allowed processing -> done|failed transition.
	SetTerminal(ctx context.Context, jobID string, outcome model.JobOutcome) error
	Count(ctx context.Context) int
}
