package ports

import (
	"context"
	"io"

	"timescribe/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session yielding encoded audio bytes.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture acquires the microphone and starts a capture session.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// AudioPlayer starts playback of a clip and returns once playback has begun.
type AudioPlayer interface {
	Play(ctx context.Context, clip domain.AudioClip) error
}

// Transcriber uploads a finished recording and returns its transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, clip domain.AudioClip) (string, error)
}

// ChatBackend exchanges one message for one reply.
type ChatBackend interface {
	Chat(ctx context.Context, message string, opts domain.ChatOptions) (string, error)
}

// Summarizer requests a summary for a date range.
type Summarizer interface {
	Summarize(ctx context.Context, query domain.DateRange) (domain.SummaryResult, error)
}

// RulesEngine rewrites transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Journal mirrors transcript lines somewhere durable.
type Journal interface {
	Append(ctx context.Context, sessionID string, msg domain.Message) error
}

// RecordingObserver receives per-recording outcomes.
type RecordingObserver interface {
	ObserveRecording(outcome string, bytes int)
}

// View is the UI surface: transcript, text input and listening indicator.
type View interface {
	AppendMessage(msg domain.Message)
	SetInput(text string)
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	SessionError(code domain.ErrorCode, detail string)
}
