// Package leaderboard derives public standings from recorded scores and
// publishes them. The leaderboard is a pure projection of the store, so a
// rebuild after unchanged scores publishes identical pages.
package leaderboard

import (
	"context"
	"os"

	"go.uber.org/zap"

	"mlgrader/internal/store"
	appErr "mlgrader/pkg/errors"
	"mlgrader/pkg/utils/logger"
)

var taskTitles = map[store.Task]string{
	store.TaskBadnets: "Badnets leaderboard",
	store.TaskLira:    "Lira leaderboard",
}

// Builder queries standings for every task, renders them and hands the
// result to the publisher.
type Builder struct {
	store     store.Store
	publisher Publisher
	style     string
}

// NewBuilder loads the shared stylesheet from stylePath; an empty path
// renders pages without inline styles.
func NewBuilder(st store.Store, publisher Publisher, stylePath string) (*Builder, error) {
	var style string
	if stylePath != "" {
		data, err := os.ReadFile(stylePath)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.RenderFailed, "read leaderboard stylesheet failed")
		}
		style = string(data)
	}
	return &Builder{store: st, publisher: publisher, style: style}, nil
}

// Update rebuilds and publishes the leaderboard for every task. A failure on
// one task does not stop the others; the first error is returned.
func (b *Builder) Update(ctx context.Context) error {
	var firstErr error
	for _, task := range store.Tasks {
		if err := b.updateTask(ctx, task); err != nil {
			logger.Error(ctx, "leaderboard task update failed",
				zap.String("task", string(task)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *Builder) updateTask(ctx context.Context, task store.Task) error {
	rows, err := b.store.Leaderboard(ctx, task)
	if err != nil {
		return err
	}
	content := Render(taskTitles[task], rows, b.style)
	if err := b.publisher.Publish(ctx, string(task), content); err != nil {
		return err
	}
	logger.Info(ctx, "leaderboard published",
		zap.String("task", string(task)), zap.Int("rows", len(rows)))
	return nil
}
