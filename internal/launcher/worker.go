package launcher

import (
	"fmt"
	"strings"

	"modelrun/internal/common/fsutil"
)

// LocateWorker finds the single file in dir matching pattern.
func LocateWorker(dir, pattern string) (string, error) {
	if pattern == "" {
		return "", ErrMissingWorker("no worker pattern configured")
	}
	matches, err := fsutil.GlobFiles(dir, pattern)
	if err != nil {
		return "", ErrMissingWorker(fmt.Sprintf("bad pattern %q: %v", pattern, err))
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", ErrMissingWorker(fmt.Sprintf("no file matching %q in %s", pattern, dir))
	default:
		return "", ErrMissingWorker(fmt.Sprintf("%d files match %q in %s: %s", len(matches), pattern, dir, strings.Join(matches, ", ")))
	}
}

// ResolveWorker returns explicit when set (it must exist), else runs LocateWorker.
func ResolveWorker(explicit, dir, pattern string) (string, error) {
	if explicit != "" {
		p, err := fsutil.ExpandHome(explicit)
		if err != nil {
			return "", ErrMissingWorker(err.Error())
		}
		if !fsutil.RegularFile(p) {
			return "", ErrMissingWorker(p)
		}
		return p, nil
	}
	return LocateWorker(dir, pattern)
}
