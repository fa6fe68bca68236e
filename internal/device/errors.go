package device

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// deviceQueryError signals that free memory could not be read for a GPU.
type deviceQueryError struct {
	gpu int
	msg string
	err error
}

func (e deviceQueryError) Error() string {
	s := "device query failed: " + e.msg
	if e.gpu >= 0 {
		s = fmt.Sprintf("device query failed for gpu %d: %s", e.gpu, e.msg)
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e deviceQueryError) Unwrap() error { return e.err }

// ErrDeviceQuery constructs a device query failure for gpu (-1 when no single gpu is involved).
func ErrDeviceQuery(gpu int, msg string, cause error) error {
	return deviceQueryError{gpu: gpu, msg: msg, err: cause}
}

// IsDeviceQuery reports whether err indicates a failed or empty device query.
func IsDeviceQuery(err error) bool {
	var e deviceQueryError
	return errors.As(err, &e)
}

type insufficientMemoryError struct {
	model       string
	gpu         int
	availableMB int
	requiredMB  int
}

func (e insufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient gpu memory for %s on gpu %d: %s free, %s required",
		e.model, e.gpu, mib(e.availableMB), mib(e.requiredMB))
}

// ErrInsufficientMemory constructs the error returned when a model does not fit on a GPU.
func ErrInsufficientMemory(model string, gpu, availableMB, requiredMB int) error {
	return insufficientMemoryError{model: model, gpu: gpu, availableMB: availableMB, requiredMB: requiredMB}
}

// IsInsufficientMemory reports whether err indicates a model that does not fit.
func IsInsufficientMemory(err error) bool {
	var e insufficientMemoryError
	return errors.As(err, &e)
}

func mib(mb int) string {
	if mb < 0 {
		mb = 0
	}
	return humanize.IBytes(uint64(mb) * 1024 * 1024)
}
