package domain

import "errors"

var (
	// Caller-fixable input errors, surfaced synchronously.
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidArgument = errors.New("invalid argument")

	// Job lookup and state errors.
	ErrJobNotFound        = errors.New("job not found")
	ErrJobNotReady        = errors.New("job is still processing")
	ErrArtifactMissing    = errors.New("file missing")
	ErrDuplicateJob       = errors.New("job already exists")
	ErrJobAlreadyTerminal = errors.New("job already reached a terminal status")

	// Background and inline workflow failures.
	ErrPipelineFailure = errors.New("conversion pipeline failed")
	ErrWorkflowFailed  = errors.New("voice registration failed")

	// Returned by collaborators when a provider lookup finds nothing.
	ErrNotFound = errors.New("entity not found")
)
