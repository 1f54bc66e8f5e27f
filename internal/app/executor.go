package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/promptlib/internal/platform/logging"
)

// Library operations run as three steps: Validate → Perform → Respond.
//
// Validate rejects bad input before any collaborator call. Perform talks to
// the collaborator. Respond shapes the result and records outcome metrics.
// There is no rollback step; writes committed by Perform stay committed when
// a later step fails.

// ExecutionStep names a step of an operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError wraps errors with the step where they occurred.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

// Unwrap returns the underlying cause so domain error checks still work.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Operation defines the steps of one use case. Nil steps are skipped.
type Operation[I, P, O any] struct {
	// Name identifies the operation in logs.
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Respond  func(ctx context.Context, input I, performed P) (O, error)
}

// Execute runs op against input and logs each step at debug level.
func Execute[I, P, O any](ctx context.Context, op Operation[I, P, O], input I) (O, error) {
	var (
		zeroP P
		zeroO O
	)

	logger := logging.FromContext(ctx).With(slog.String("operation", op.Name))
	start := time.Now()

	if op.Validate != nil {
		if err := op.Validate(ctx, input); err != nil {
			logger.WarnContext(ctx, "validation failed", slog.Any("error", err))

			return zeroO, &ExecutionError{Step: StepValidate, Message: "input validation failed", Cause: err}
		}

		logger.DebugContext(ctx, "validation passed")
	}

	performed := zeroP

	if op.Perform != nil {
		var err error

		performed, err = op.Perform(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "perform failed", slog.Any("error", err))

			return zeroO, &ExecutionError{Step: StepPerform, Message: "operation failed", Cause: err}
		}

		logger.DebugContext(ctx, "operation performed")
	}

	result := zeroO

	if op.Respond != nil {
		var err error

		result, err = op.Respond(ctx, input, performed)
		if err != nil {
			logger.WarnContext(ctx, "respond failed", slog.Any("error", err))

			return zeroO, &ExecutionError{Step: StepRespond, Message: "response failed", Cause: err}
		}
	}

	logger.InfoContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// GetExecutionStep extracts the failing step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
