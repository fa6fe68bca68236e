package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Querier reports free memory in MB for every GPU, ordered by index.
type Querier interface {
	FreeMemoryMB(ctx context.Context) ([]int, error)
}

// SMIQuerier runs an nvidia-smi style command printing one free-memory value per line.
type SMIQuerier struct {
	Path    string
	Args    []string
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// DefaultSMIArgs asks nvidia-smi for free memory only, without header or units.
var DefaultSMIArgs = []string{"--query-gpu=memory.free", "--format=csv,noheader,nounits"}

// NewSMIQuerier returns a querier for the given binary ("" selects nvidia-smi).
func NewSMIQuerier(path string, args []string, timeout time.Duration) *SMIQuerier {
	if strings.TrimSpace(path) == "" {
		path = "nvidia-smi"
	}
	if len(args) == 0 {
		args = DefaultSMIArgs
	}
	return &SMIQuerier{Path: path, Args: args, Timeout: timeout}
}

func (q *SMIQuerier) FreeMemoryMB(ctx context.Context) ([]int, error) {
	bin, err := exec.LookPath(q.Path)
	if err != nil {
		return nil, ErrDeviceQuery(-1, q.Path+" not available", err)
	}
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, q.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if q.Logger != nil {
			q.Logger.Debug().Err(err).Str("stderr", stderr.String()).Msg("device query command failed")
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrDeviceQuery(-1, "timed out", ctx.Err())
		}
		return nil, ErrDeviceQuery(-1, fmt.Sprintf("%s failed: %s", q.Path, tail(stderr.String(), 512)), err)
	}
	free, err := ParseFreeMemory(stdout.String())
	if err != nil {
		return nil, ErrDeviceQuery(-1, "unexpected output", err)
	}
	return free, nil
}

// ParseFreeMemory parses one integer per non-empty line. A trailing " MiB" unit is tolerated.
func ParseFreeMemory(out string) ([]int, error) {
	var free []int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// index,free form when callers query both columns
		if i := strings.LastIndex(line, ","); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "MiB"))
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q is not a number", len(free), line)
		}
		if n < 0 {
			return nil, fmt.Errorf("line %d: negative free memory %d", len(free), n)
		}
		free = append(free, n)
	}
	return free, nil
}

// StaticQuerier returns fixed values; used for device.free_mb overrides.
type StaticQuerier []int

func (s StaticQuerier) FreeMemoryMB(context.Context) ([]int, error) {
	return append([]int(nil), s...), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
