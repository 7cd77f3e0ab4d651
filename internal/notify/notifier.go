// Package notify delivers student-facing messages through the external chat
// front-end. The core never talks to the chat platform directly; it hands a
// rendered text to a Notifier and moves on.
package notify

import "context"

// Notifier sends one message to one student. Implementations are expected to
// be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, identity int64, text string) error
}
