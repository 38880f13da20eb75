package model

import (
	"time"

	"echobook/internal/domain"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is done or failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job is one document-to-audio conversion and its lifecycle record.
type Job struct {
	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	VoiceID    string    `json:"voice_uuid"`
	Pages      int       `json:"pages,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewJob creates a job in processing state.
func NewJob(id, voiceID string) (*Job, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Status:    JobStatusProcessing,
		VoiceID:   voiceID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// JobOutcome is the single terminal write produced by a pipeline run.
type JobOutcome struct {
	Status     JobStatus
	OutputPath string
	Error      string
	Pages      int
}

// Succeeded builds a done outcome.
func Succeeded(outputPath string, pages int) JobOutcome {
	return JobOutcome{Status: JobStatusDone, OutputPath: outputPath, Pages: pages}
}

// Failed builds a failed outcome.
func Failed(reason string) JobOutcome {
	if reason == "" {
		reason = "unknown error"
	}
	return JobOutcome{Status: JobStatusFailed, Error: reason}
}

// Validate enforces that exactly one of OutputPath and Error is populated
// for the outcome's terminal status.
func (o JobOutcome) Validate() error {
	switch o.Status {
	case JobStatusDone:
		if o.OutputPath == "" || o.Error != "" {
			return domain.ErrInvalidArgument
		}
	case JobStatusFailed:
		if o.Error == "" || o.OutputPath != "" {
			return domain.ErrInvalidArgument
		}
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

// Apply moves the job to the outcome's terminal status.
func (j *Job) Apply(o JobOutcome) error {
	if j.Status.IsTerminal() {
		return domain.ErrJobAlreadyTerminal
	}
	if err := o.Validate(); err != nil {
		return err
	}
	j.Status = o.Status
	j.OutputPath = o.OutputPath
	j.Error = o.Error
	j.Pages = o.Pages
	j.UpdatedAt = time.Now().UTC()
	return nil
}
