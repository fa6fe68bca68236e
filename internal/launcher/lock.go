package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"modelrun/internal/common/fsutil"
)

const lockRetryDelay = 200 * time.Millisecond

// GPULock is an advisory per-GPU file lock shared by concurrent modelrun
// processes on one host.
type GPULock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for gpu inside dir.
func LockPath(dir string, gpu int) string {
	return filepath.Join(dir, "modelrun-gpu"+strconv.Itoa(gpu)+".lock")
}

// AcquireGPULock blocks until the lock for gpu is held or ctx is done.
func AcquireGPULock(ctx context.Context, dir string, gpu int) (*GPULock, error) {
	d, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}
	fl := flock.New(LockPath(d, gpu))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock gpu %d: %w", gpu, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock gpu %d: not acquired", gpu)
	}
	return &GPULock{fl: fl}, nil
}

// Release drops the lock. Safe to call more than once and on nil.
func (g *GPULock) Release() error {
	if g == nil || g.fl == nil {
		return nil
	}
	return g.fl.Unlock()
}
