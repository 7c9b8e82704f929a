package usecase

import (
	"sync"
	"time"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

// transcript is the append-only conversation log. Lines are never removed or
// reordered; view notifications happen under the same lock so every view sees
// lines in ID order.
type transcript struct {
	mu    sync.Mutex
	lines []domain.Message
	view  ports.View
	now   func() time.Time
}

func newTranscript(view ports.View) *transcript {
	return &transcript{view: view, now: time.Now}
}

func (t *transcript) Append(role domain.Role, text string, replyTo int) domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := domain.Message{
		ID:      len(t.lines) + 1,
		Role:    role,
		Text:    text,
		ReplyTo: replyTo,
		At:      t.now(),
	}
	t.lines = append(t.lines, msg)
	t.view.AppendMessage(msg)
	return msg
}

func (t *transcript) Snapshot() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.lines))
	copy(out, t.lines)
	return out
}
