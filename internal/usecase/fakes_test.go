package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

// fakeAudioSession yields its chunks, then blocks until Stop unless
// endAfterChunks is set, in which case it reports EOF on its own.
type fakeAudioSession struct {
	mu             sync.Mutex
	chunks         [][]byte
	index          int
	endAfterChunks bool
	stopped        chan struct{}
	stopOnce       sync.Once
	stopCalls      int
	stopErr        error
}

func newFakeAudioSession(endAfterChunks bool, chunks ...string) *fakeAudioSession {
	s := &fakeAudioSession{endAfterChunks: endAfterChunks, stopped: make(chan struct{})}
	for _, chunk := range chunks {
		s.chunks = append(s.chunks, []byte(chunk))
	}
	return s
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	end := f.endAfterChunks
	f.mu.Unlock()

	if !end {
		<-f.stopped
	}
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return f.Stop() }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return f.stopErr
}

func (f *fakeAudioSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type errorAudioSession struct {
	err error
}

func (s *errorAudioSession) Read(_ []byte) (int, error) { return 0, s.err }
func (s *errorAudioSession) Close() error               { return nil }
func (s *errorAudioSession) Stop() error                { return nil }

type transcribeCall struct {
	filename string
	clip     domain.AudioClip
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []transcribeCall
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filename string, clip domain.AudioClip) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transcribeCall{filename: filename, clip: clip})
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeTranscriber) snapshot() []transcribeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transcribeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type sentMessage struct {
	text string
	opts domain.ChatOptions
}

type fakeSender struct {
	err  error
	sent chan sentMessage
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan sentMessage, 8)}
}

func (f *fakeSender) SendMessage(_ context.Context, text string, opts domain.ChatOptions) (domain.Message, error) {
	f.sent <- sentMessage{text: text, opts: opts}
	if f.err != nil {
		return domain.Message{}, f.err
	}
	return domain.Message{Role: domain.RoleAssistant, Text: "ok"}, nil
}

type fakeRules struct {
	transform string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}

type chatCall struct {
	message string
	opts    domain.ChatOptions
}

type fakeChat struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []chatCall
}

func (f *fakeChat) Chat(_ context.Context, message string, opts domain.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chatCall{message: message, opts: opts})
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSummarizer struct {
	result  domain.SummaryResult
	err     error
	queries []domain.DateRange
}

func (f *fakeSummarizer) Summarize(_ context.Context, query domain.DateRange) (domain.SummaryResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return domain.SummaryResult{}, f.err
	}
	return f.result, nil
}

type fakePlayer struct {
	mu    sync.Mutex
	clips []domain.AudioClip
	err   error
}

func (f *fakePlayer) Play(_ context.Context, clip domain.AudioClip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clips = append(f.clips, clip)
	return f.err
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []domain.Message
	err     error
}

func (f *fakeJournal) Append(_ context.Context, _ string, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, msg)
	return f.err
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeView struct {
	mu sync.Mutex

	messages []domain.Message
	inputs   []string
	states   []stateEvent
	errors   []errEvent
}

func (f *fakeView) AppendMessage(msg domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeView) SetInput(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, text)
}

func (f *fakeView) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeView) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeView) snapshotMessages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeView) snapshotInputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.inputs))
	copy(out, f.inputs)
	return out
}

func (f *fakeView) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeView) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

// statusText is what the listening indicator shows after the last transition.
func (f *fakeView) statusText() string {
	states := f.snapshotStates()
	if len(states) == 0 {
		return ""
	}
	return domain.StatusMessage(states[len(states)-1].reason)
}

type fakeObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeObserver) ObserveRecording(outcome string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeObserver) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.outcomes))
	copy(out, f.outcomes)
	return out
}

func waitForSend(t *testing.T, sender *fakeSender) sentMessage {
	t.Helper()
	select {
	case msg := <-sender.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for auto-send")
		return sentMessage{}
	}
}
