package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrSessionActive   = errors.New("a recording session is already active")
)

// Config controls recording behavior.
type Config struct {
	Audio         ports.AudioConfig
	ChunkSize     int
	MimeType      string
	FileExtension string
}

// SessionController runs the capture lifecycle: acquire the microphone,
// accumulate audio, upload it for transcription and hand the transcript to
// the conversation.
type SessionController struct {
	audio       ports.AudioCapture
	transcriber ports.Transcriber
	sender      Sender
	view        ports.View
	observer    ports.RecordingObserver
	logger      *slog.Logger
	finalizer   transcriptFinalizer
	cfg         Config

	mu       sync.Mutex
	current  *recordingSession
	starting bool
	state    domain.SessionState
	reason   domain.SessionStateReason
}

// NewSessionController wires a capture controller. rules, observer and
// logger may be nil.
func NewSessionController(
	audio ports.AudioCapture,
	transcriber ports.Transcriber,
	rules ports.RulesEngine,
	sender Sender,
	view ports.View,
	observer ports.RecordingObserver,
	logger *slog.Logger,
	cfg Config,
) *SessionController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.MimeType == "" {
		cfg.MimeType = "audio/webm"
	}
	if cfg.FileExtension == "" {
		cfg.FileExtension = "webm"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionController{
		audio:       audio,
		transcriber: transcriber,
		sender:      sender,
		view:        view,
		observer:    observer,
		logger:      logger,
		finalizer:   newTranscriptFinalizer(rules, view),
		cfg:         cfg,
		state:       domain.SessionStateIdle,
		reason:      domain.SessionReasonIdle,
	}
}

// Start acquires the microphone and begins a new recording. Only one
// recording may be active; a second Start is rejected with ErrSessionActive.
// opts are carried to the message sent after transcription.
func (c *SessionController) Start(ctx context.Context, opts domain.ChatOptions) error {
	c.mu.Lock()
	if c.current != nil || c.starting {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.starting = true
	c.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	audioSession, err := c.audio.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()

		c.logger.Warn("microphone unavailable", "error", err)
		c.observe("mic_unavailable", 0)
		c.view.SessionError(domain.ErrorCodeMicUnavailable, err.Error())
		c.emit(domain.SessionStateFailed, domain.SessionReasonMicUnavailable)
		return fmt.Errorf("acquire microphone: %w", err)
	}

	session := &recordingSession{
		id:       uuid.NewString(),
		opts:     opts,
		cancel:   cancel,
		audio:    audioSession,
		pumpDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.starting = false
	c.current = session
	c.mu.Unlock()

	c.logger.Debug("recording started", "session", session.id)
	c.emit(domain.SessionStateListening, domain.SessionReasonListening)

	go pumpAudioChunks(session, c.cfg.ChunkSize, c.view)
	go c.watchStreamEnd(sessionCtx, session)
	return nil
}

// Stop ends the active recording, uploads it and hands the transcript off.
// Without an active recording it clears the indicator and returns
// ErrNoActiveSession, which callers treat as a no-op.
func (c *SessionController) Stop(ctx context.Context) (domain.StopResult, error) {
	session := c.claimCurrent()
	if session == nil {
		c.mu.Lock()
		state := c.state
		c.mu.Unlock()
		c.emit(state, domain.SessionReasonIdle)
		return domain.StopResult{}, ErrNoActiveSession
	}
	return c.finish(ctx, session)
}

// Abort discards the active recording without uploading it.
func (c *SessionController) Abort() error {
	session := c.claimCurrent()
	if session == nil {
		return ErrNoActiveSession
	}

	c.stopRecorder(session)
	session.discard()
	c.observe("discarded", 0)
	c.emit(domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current capture status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:   c.state,
		Active:  c.current != nil || c.starting,
		Message: domain.StatusMessage(c.reason),
	}
}

// watchStreamEnd finishes a session whose recorder ended on its own.
func (c *SessionController) watchStreamEnd(ctx context.Context, session *recordingSession) {
	<-session.pumpDone

	c.mu.Lock()
	if c.current != session || session.claimed {
		c.mu.Unlock()
		return
	}
	session.claimed = true
	c.mu.Unlock()

	c.logger.Debug("capture stream ended", "session", session.id)
	// The session context is cancelled once the recorder stops; the upload
	// must survive that.
	if _, err := c.finish(context.WithoutCancel(ctx), session); err != nil {
		c.logger.Warn("recording finished with error", "session", session.id, "error", err)
	}
}

func (c *SessionController) finish(ctx context.Context, session *recordingSession) (domain.StopResult, error) {
	c.emit(domain.SessionStateStopping, domain.SessionReasonRecordingStopped)
	c.stopRecorder(session)

	clip := session.finalize(c.cfg.MimeType)
	result := domain.StopResult{SessionID: session.id, Bytes: len(clip.Data)}

	c.emit(domain.SessionStateUploading, domain.SessionReasonUploading)
	raw, err := c.transcriber.Transcribe(ctx, session.id+"."+c.cfg.FileExtension, clip)
	if err != nil {
		c.logger.Warn("transcription failed", "session", session.id, "bytes", len(clip.Data), "error", err)
		c.observe("transcription_failed", len(clip.Data))
		c.view.SessionError(domain.ErrorCodeTranscription, err.Error())
		c.emit(domain.SessionStateError, domain.SessionReasonTranscriptionFailed)
		return domain.StopResult{}, fmt.Errorf("transcribe recording: %w", err)
	}
	c.observe("transcribed", len(clip.Data))

	text := c.finalizer.Finalize(raw)
	result.Transcription = text
	c.emit(domain.SessionStateIdle, domain.SessionReasonTranscribed)

	opts := session.opts
	opts.FromTranscription = true
	if _, err := c.sender.SendMessage(ctx, text, opts); err != nil {
		// The conversation has already put the failure in the transcript.
		c.logger.Warn("auto-send failed", "session", session.id, "error", err)
		return result, nil
	}
	result.Sent = text != ""
	return result, nil
}

// stopRecorder stops capture, waits for the pump to drain and releases the
// active slot so the next recording can start.
func (c *SessionController) stopRecorder(session *recordingSession) {
	if err := session.audio.Stop(); err != nil {
		c.logger.Warn("audio stop failed", "session", session.id, "error", err)
		c.view.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	<-session.pumpDone
	session.cancel()

	c.mu.Lock()
	if c.current == session {
		c.current = nil
	}
	c.mu.Unlock()
}

func (c *SessionController) claimCurrent() *recordingSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.claimed {
		return nil
	}
	c.current.claimed = true
	return c.current
}

func (c *SessionController) emit(state domain.SessionState, reason domain.SessionStateReason) {
	c.mu.Lock()
	c.state = state
	c.reason = reason
	c.mu.Unlock()
	c.view.SessionStateChanged(state, reason)
}

func (c *SessionController) observe(outcome string, bytes int) {
	if c.observer != nil {
		c.observer.ObserveRecording(outcome, bytes)
	}
}
