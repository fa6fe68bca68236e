package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if p, err := ExpandHome("~"); err != nil || p != home {
		t.Fatalf("expected %q, got %q err=%v", home, p, err)
	}
	exp, err := ExpandHome("~/workers")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if filepath.Base(exp) != "workers" || filepath.Dir(exp) != home {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestGlobFiles(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"vllm_miner.py", "other_miner.py", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// directories never match
	if err := os.Mkdir(filepath.Join(dir, "dir_miner.py"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := GlobFiles(dir, "*miner*.py")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "other_miner.py" || filepath.Base(got[1]) != "vllm_miner.py" {
		t.Fatalf("unexpected matches: %v", got)
	}
	if _, err := GlobFiles(dir, "[bad"); err == nil {
		t.Fatalf("expected bad pattern error")
	}
}

func TestPathChecks(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "w.py")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !RegularFile(f) {
		t.Fatalf("expected file to exist")
	}
	if RegularFile(dir) {
		t.Fatalf("dir is not a regular file")
	}
	if RegularFile(filepath.Join(dir, "missing")) {
		t.Fatalf("missing path reported as a file")
	}
}
