package launcher

import (
	"errors"
	"fmt"
	"strings"
)

// incompleteModelDetailsError signals a descriptor missing fields the worker needs.
type incompleteModelDetailsError struct {
	model   string
	missing []string
}

func (e incompleteModelDetailsError) Error() string {
	return "incomplete model details for " + e.model + ": missing " + strings.Join(e.missing, ", ")
}

// ErrIncompleteModelDetails names the descriptor fields that are absent.
func ErrIncompleteModelDetails(model string, missing ...string) error {
	return incompleteModelDetailsError{model: model, missing: missing}
}

// IsIncompleteModelDetails reports whether err indicates an incomplete descriptor.
func IsIncompleteModelDetails(err error) bool {
	var e incompleteModelDetailsError
	return errors.As(err, &e)
}

// MissingFields returns the field names carried by an incomplete-details error.
func MissingFields(err error) []string {
	var e incompleteModelDetailsError
	if errors.As(err, &e) {
		return append([]string(nil), e.missing...)
	}
	return nil
}

type missingWorkerError struct{ msg string }

func (e missingWorkerError) Error() string { return "worker not found: " + e.msg }

// ErrMissingWorker is returned when no (or more than one) worker executable is found.
func ErrMissingWorker(msg string) error { return missingWorkerError{msg: msg} }

// IsMissingWorker reports whether err indicates a missing worker executable.
func IsMissingWorker(err error) bool {
	var e missingWorkerError
	return errors.As(err, &e)
}

// workerExitError carries the exit status of a worker that failed after launch.
type workerExitError struct {
	code int
	err  error
}

func (e workerExitError) Error() string {
	return fmt.Sprintf("worker exited with code %d", e.code)
}

func (e workerExitError) Unwrap() error { return e.err }

// ErrWorkerExit wraps a non-zero worker exit.
func ErrWorkerExit(code int, cause error) error { return workerExitError{code: code, err: cause} }

// IsWorkerExit reports whether err is a worker exit failure.
func IsWorkerExit(err error) bool {
	var e workerExitError
	return errors.As(err, &e)
}

// WorkerExitCode returns the worker's exit code, or 0 when err is not a worker exit.
func WorkerExitCode(err error) int {
	var e workerExitError
	if errors.As(err, &e) {
		return e.code
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return "usage: " + e.msg }

// ErrUsage reports malformed invocation flags.
func ErrUsage(format string, a ...any) error { return usageError{msg: fmt.Sprintf(format, a...)} }

// IsUsage reports whether err is an invocation error.
func IsUsage(err error) bool {
	var e usageError
	return errors.As(err, &e)
}
