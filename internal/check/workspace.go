package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	appErr "mlgrader/pkg/errors"
	"mlgrader/pkg/utils/logger"
)

// Workspace moves claimed solutions from the shared solutions root into
// per-job evaluation directories and tears them down afterwards.
type Workspace struct {
	solutionsRoot  string
	evaluationRoot string
	harnessPath    string
}

func NewWorkspace(solutionsRoot, evaluationRoot, harnessPath string) *Workspace {
	return &Workspace{
		solutionsRoot:  solutionsRoot,
		evaluationRoot: evaluationRoot,
		harnessPath:    harnessPath,
	}
}

func (w *Workspace) solutionDir(identity int64) string {
	return filepath.Join(w.solutionsRoot, strconv.FormatInt(identity, 10))
}

// Acquire takes ownership of the student's materialized solution by moving
// it into a job-scoped evaluation directory. The move is a rename, so a
// resubmission landing during evaluation materializes a fresh directory
// instead of mutating the one being checked. When the two roots sit on
// different filesystems the rename falls back to a copy and delete.
func (w *Workspace) Acquire(identity int64, jobID int64) (string, error) {
	src := w.solutionDir(identity)
	evalDir := filepath.Join(w.evaluationRoot, fmt.Sprintf("%d-%d", identity, jobID))

	if err := os.MkdirAll(w.evaluationRoot, 0o755); err != nil {
		return "", appErr.Wrapf(err, appErr.WorkspaceError, "create evaluation root failed")
	}
	if err := os.RemoveAll(evalDir); err != nil {
		return "", appErr.Wrapf(err, appErr.WorkspaceError, "clear evaluation directory failed")
	}

	err := os.Rename(src, evalDir)
	if err == nil {
		return evalDir, nil
	}
	if !isCrossDevice(err) {
		return "", appErr.Wrapf(err, appErr.WorkspaceError, "move solution into evaluation directory failed")
	}
	if err := copyTree(src, evalDir); err != nil {
		return "", appErr.Wrapf(err, appErr.WorkspaceError, "copy solution into evaluation directory failed")
	}
	if err := os.RemoveAll(src); err != nil {
		return "", appErr.Wrapf(err, appErr.WorkspaceError, "remove source solution failed")
	}
	return evalDir, nil
}

// StageHarness copies the evaluation harness into the evaluation directory
// so the run sees a self-contained tree.
func (w *Workspace) StageHarness(evalDir string) (string, error) {
	name := filepath.Base(w.harnessPath)
	target := filepath.Join(evalDir, name)
	if err := copyFile(w.harnessPath, target, 0o755); err != nil {
		return "", appErr.Wrapf(err, appErr.HarnessStageFailed, "stage harness failed")
	}
	return name, nil
}

// Cleanup removes the evaluation directory. It runs on every job outcome
// and is safe to call with a path that no longer exists. The solutions root
// is left alone: a directory there belongs to a newer submission.
func (w *Workspace) Cleanup(ctx context.Context, evalDir string) {
	if evalDir != "" {
		if err := os.RemoveAll(evalDir); err != nil {
			logger.Warn(ctx, "remove evaluation directory failed",
				zap.String("dir", evalDir), zap.Error(err))
		}
	}
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return strings.Contains(linkErr.Err.Error(), "cross-device")
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
