//go:build !windows

package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeSMI writes an executable shell script standing in for nvidia-smi.
func fakeSMI(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fake-smi")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestSMIQuerier_Parses(t *testing.T) {
	q := NewSMIQuerier(fakeSMI(t, `printf '45000\n12000\n'`), nil, time.Second)
	free, err := q.FreeMemoryMB(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(free) != 2 || free[0] != 45000 || free[1] != 12000 {
		t.Fatalf("free=%v", free)
	}
}

func TestSMIQuerier_PassesArgs(t *testing.T) {
	bin := fakeSMI(t, `[ "$1" = "--query-gpu=memory.free" ] && [ "$2" = "--format=csv,noheader,nounits" ] || exit 3; echo 1`)
	free, err := NewSMIQuerier(bin, nil, time.Second).FreeMemoryMB(context.Background())
	if err != nil || len(free) != 1 {
		t.Fatalf("free=%v err=%v", free, err)
	}
}

func TestSMIQuerier_Failures(t *testing.T) {
	cases := map[string]*SMIQuerier{
		"missing binary": NewSMIQuerier(filepath.Join(t.TempDir(), "nope"), nil, time.Second),
		"non-zero exit":  NewSMIQuerier(fakeSMI(t, `echo "NVIDIA-SMI has failed" >&2; exit 9`), nil, time.Second),
		"garbage":        NewSMIQuerier(fakeSMI(t, `echo "No devices were found"`), nil, time.Second),
		"timeout":        NewSMIQuerier(fakeSMI(t, `exec sleep 5`), nil, 100*time.Millisecond),
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := q.FreeMemoryMB(context.Background()); !IsDeviceQuery(err) {
				t.Fatalf("expected device query error, got %v", err)
			}
		})
	}
}

func TestValidator_WithSMIQuerier(t *testing.T) {
	v := NewValidator(NewSMIQuerier(fakeSMI(t, `echo 30000`), nil, time.Second), nil)
	st, err := v.Check(context.Background(), desc(19.5), 0)
	if err != nil || st.AvailableMB != 30000 {
		t.Fatalf("state=%+v err=%v", st, err)
	}
}
