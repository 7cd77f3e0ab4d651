package notify

import (
	"context"

	"mlgrader/pkg/utils/logger"

	"go.uber.org/zap"
)

// ConsoleNotifier logs messages instead of delivering them. Used in local
// development and tests when no chat front-end is running.
type ConsoleNotifier struct{}

// NewConsoleNotifier creates a console notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Send logs the message.
func (n *ConsoleNotifier) Send(ctx context.Context, identity int64, text string) error {
	logger.Info(ctx, "notification",
		zap.Int64("identity", identity),
		zap.String("text", text),
	)
	return nil
}
