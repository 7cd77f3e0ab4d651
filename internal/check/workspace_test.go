package check

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	base := t.TempDir()

	harnessPath := filepath.Join(base, "harness.sh")
	if err := os.WriteFile(harnessPath, []byte("#!/bin/bash\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write harness: %v", err)
	}

	solutionsRoot := filepath.Join(base, "solutions")
	w := NewWorkspace(solutionsRoot, filepath.Join(base, "evaluations"), harnessPath)
	return w, solutionsRoot
}

func TestAcquireMovesSolution(t *testing.T) {
	t.Parallel()
	w, solutionsRoot := newTestWorkspace(t)

	src := filepath.Join(solutionsRoot, "10")
	if err := os.MkdirAll(filepath.Join(src, "utils"), 0o755); err != nil {
		t.Fatalf("create solution: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "utils", "helpers.py"), []byte("pass\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	evalDir, err := w.Acquire(10, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected the source directory to be taken over")
	}
	if _, err := os.Stat(filepath.Join(evalDir, "utils", "helpers.py")); err != nil {
		t.Fatalf("expected files moved into evaluation directory: %v", err)
	}

	// A new materialization for the same student no longer races the
	// evaluation copy.
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("rematerialize: %v", err)
	}
	if _, err := os.Stat(evalDir); err != nil {
		t.Fatalf("evaluation copy must stay intact: %v", err)
	}
}

func TestAcquireMissingSolution(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkspace(t)

	if _, err := w.Acquire(10, 1); err == nil {
		t.Fatal("expected error when no solution directory exists")
	}
}

func TestStageHarness(t *testing.T) {
	t.Parallel()
	w, solutionsRoot := newTestWorkspace(t)

	src := filepath.Join(solutionsRoot, "10")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("create solution: %v", err)
	}
	evalDir, err := w.Acquire(10, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	script, err := w.StageHarness(evalDir)
	if err != nil {
		t.Fatalf("stage harness: %v", err)
	}
	info, err := os.Stat(filepath.Join(evalDir, script))
	if err != nil {
		t.Fatalf("expected staged harness: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatal("expected the harness to be executable")
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	t.Parallel()
	w, solutionsRoot := newTestWorkspace(t)
	ctx := context.Background()

	src := filepath.Join(solutionsRoot, "10")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("create solution: %v", err)
	}
	evalDir, err := w.Acquire(10, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	w.Cleanup(ctx, evalDir)
	if _, err := os.Stat(evalDir); !os.IsNotExist(err) {
		t.Fatal("expected evaluation directory removed")
	}
	w.Cleanup(ctx, evalDir)
	w.Cleanup(ctx, "")
}

func TestCopyTree(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "a", "b"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "a", "b", "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copy tree: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "a", "b", "f.txt"))
	if err != nil || string(data) != "x" {
		t.Fatalf("expected copied file, got %q (%v)", data, err)
	}
}
