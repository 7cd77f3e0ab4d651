package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"mlgrader/internal/store"
	appErr "mlgrader/pkg/errors"
	"mlgrader/pkg/utils/logger"
)

const msgAccepted = "Solution accepted! You will be notified when checking finishes."

const msgNotRegistered = "You are not registered yet. Send /start to register first."

// IntakeConfig controls archive validation and where accepted solutions land.
type IntakeConfig struct {
	SolutionsRoot    string   `yaml:"solutionsRoot"`
	MaxArchiveSizeMB int64    `yaml:"maxArchiveSizeMB"`
	RequiredFiles    []string `yaml:"requiredFiles"`
}

func (c *IntakeConfig) setDefaults() {
	if c.MaxArchiveSizeMB <= 0 {
		c.MaxArchiveSizeMB = 30
	}
	if len(c.RequiredFiles) == 0 {
		c.RequiredFiles = []string{"requirements.txt", "solution.py"}
	}
}

// IntakeService accepts solution archives. A valid archive replaces the
// student's previous materialized solution and enqueues exactly one job;
// resubmitting before the previous job runs replaces it in the queue.
type IntakeService struct {
	store store.Store
	cfg   IntakeConfig
}

func NewIntakeService(st store.Store, cfg IntakeConfig) *IntakeService {
	cfg.setDefaults()
	return &IntakeService{store: st, cfg: cfg}
}

// Submit validates the archive, materializes it under the solutions root and
// enqueues the job. It returns the reply text shown to the student.
func (s *IntakeService) Submit(ctx context.Context, identity int64, archive []byte) (string, error) {
	student, err := s.store.GetStudent(ctx, identity)
	if err != nil && !errors.Is(err, store.ErrStudentNotFound) {
		return "", err
	}
	if errors.Is(err, store.ErrStudentNotFound) || !student.Registered() {
		return "", appErr.New(appErr.NotRegistered).WithMessage(msgNotRegistered)
	}

	if int64(len(archive)) > s.cfg.MaxArchiveSizeMB<<20 {
		return "", appErr.Newf(appErr.ArchiveTooLarge,
			"The archive exceeds the maximum size of %d MB!", s.cfg.MaxArchiveSizeMB)
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", appErr.Wrap(err, appErr.BadArchive).
			WithMessage("The file is not a valid zip archive!")
	}

	if missing := missingFiles(reader, s.cfg.RequiredFiles); len(missing) > 0 {
		return "", appErr.Newf(appErr.MissingRequiredFile,
			"The archive must contain %s at the top level!", strings.Join(missing, " and "))
	}

	if err := s.materialize(ctx, identity, reader); err != nil {
		return "", err
	}

	if err := s.store.Enqueue(ctx, identity); err != nil {
		return "", err
	}
	logger.Info(ctx, "solution enqueued",
		zap.Int64("identity", identity), zap.Int("archive_bytes", len(archive)))
	return msgAccepted, nil
}

func missingFiles(reader *zip.Reader, required []string) []string {
	present := make(map[string]bool, len(reader.File))
	for _, f := range reader.File {
		present[f.Name] = true
	}
	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// materialize extracts the archive into a temporary directory next to the
// final location, then swaps it in with a rename so readers never observe a
// half-written solution directory.
func (s *IntakeService) materialize(ctx context.Context, identity int64, reader *zip.Reader) error {
	finalDir := filepath.Join(s.cfg.SolutionsRoot, strconv.FormatInt(identity, 10))
	tmpDir := finalDir + ".tmp-" + uuid.NewString()

	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return appErr.Wrapf(err, appErr.MaterializeFailed, "create solution directory failed")
	}
	cleanupTmp := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn(ctx, "remove temporary solution directory failed",
				zap.String("dir", tmpDir), zap.Error(err))
		}
	}

	for _, f := range reader.File {
		if err := extractEntry(tmpDir, f); err != nil {
			cleanupTmp()
			return err
		}
	}

	if err := os.RemoveAll(finalDir); err != nil {
		cleanupTmp()
		return appErr.Wrapf(err, appErr.MaterializeFailed, "remove previous solution failed")
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		cleanupTmp()
		return appErr.Wrapf(err, appErr.MaterializeFailed, "move solution into place failed")
	}
	return nil
}

func extractEntry(destRoot string, f *zip.File) error {
	target := filepath.Join(destRoot, filepath.Clean(f.Name))
	if !strings.HasPrefix(target, destRoot+string(os.PathSeparator)) {
		return appErr.Newf(appErr.UnsafeArchivePath, "archive entry escapes the target directory: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return appErr.Wrapf(err, appErr.MaterializeFailed, "create directory failed")
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return appErr.Wrapf(err, appErr.MaterializeFailed, "create directory failed")
	}
	src, err := f.Open()
	if err != nil {
		return appErr.Wrapf(err, appErr.BadArchive, "open archive entry failed")
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return appErr.Wrapf(err, appErr.MaterializeFailed, "create file failed")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return appErr.Wrapf(err, appErr.MaterializeFailed, "write file failed")
	}
	return dst.Close()
}
