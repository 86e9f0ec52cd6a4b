package dto

import "errors"

// Execution errors
var (
	ErrMissingGraphID   = errors.New("graph ID is required")
	ErrMissingThreadID  = errors.New("thread ID is required")
	ErrInvalidConfig    = errors.New("invalid execution configuration")
	ErrExecutionFailed  = errors.New("graph execution failed")
	ErrExecutionTimeout = errors.New("graph execution timeout")
	ErrExecutionStopped = errors.New("graph execution stopped")
	ErrExecutionUnknown = errors.New("execution not found")
	ErrRecursionLimit   = errors.New("recursion limit reached without hitting a stop condition")
	ErrStepFailed       = errors.New("step execution failed")
	ErrNothingToResume  = errors.New("checkpoint has no next node")
)
