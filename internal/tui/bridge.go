package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"timescribe/internal/domain"
)

// Bridge implements the view port for the terminal UI. Notifications are
// queued in order and forwarded to the program by a single goroutine, so
// callers never block on the UI loop. Nothing is delivered before Attach or
// after Close.
type Bridge struct {
	mu      sync.Mutex
	queue   []tea.Msg
	wake    chan struct{}
	started bool
	closed  bool
}

func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// Attach starts forwarding queued notifications to p. Only the first call
// has an effect.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true

	go b.forward(p)
	b.notify()
}

// Close stops the forwarding goroutine and drops anything still queued.
// Later notifications are discarded.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.queue = nil
	close(b.wake)
}

func (b *Bridge) forward(p *tea.Program) {
	for range b.wake {
		for {
			b.mu.Lock()
			batch := b.queue
			b.queue = nil
			b.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, msg := range batch {
				p.Send(msg)
			}
		}
	}
}

// notify must be called with mu held so it never races Close.
func (b *Bridge) notify() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, msg)
	b.notify()
}

func (b *Bridge) AppendMessage(msg domain.Message) {
	b.send(lineAppendedMsg{line: msg})
}

func (b *Bridge) SetInput(text string) {
	b.send(inputSetMsg{text: text})
}

func (b *Bridge) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	b.send(sessionStateMsg{state: state, reason: reason})
}

func (b *Bridge) SessionError(code domain.ErrorCode, detail string) {
	b.send(sessionErrorMsg{code: code, detail: detail})
}

