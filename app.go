package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"timescribe/internal/bootstrap"
	"timescribe/internal/config"
	"timescribe/internal/domain"
	"timescribe/internal/usecase"
)

const (
	eventMessage = "timescribe:message"
	eventInput   = "timescribe:input"
	eventSession = "timescribe:session"
	eventError   = "timescribe:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services bootstrap.Services
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	bootErr  error
}

func NewApp() *App {
	return &App{logger: slog.New(slog.DiscardHandler)}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		a.fail(err)
		return
	}
	logger, closeLog, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		a.fail(err)
		return
	}
	a.logger = logger
	a.closeLog = closeLog

	services, err := bootstrap.BuildWithConfig(cfg, a, logger)
	if err != nil {
		a.fail(err)
		return
	}

	a.cfg = cfg
	a.services = services
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonIdle)
}

func (a *App) shutdown(context.Context) {
	if a.services.Controller != nil {
		_ = a.services.Controller.Abort()
	}
	if err := a.services.Close(); err != nil {
		a.logger.Warn("shutdown", slog.String("error", err.Error()))
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func (a *App) fail(err error) {
	a.bootErr = err
	a.logger.Error("startup failed", slog.String("error", err.Error()))
	a.SessionError(domain.ErrorCodeStartup, err.Error())
}

// SendMessage sends the input field text. Blank input is ignored. Failures
// are already in the transcript, so the frontend only needs the error for
// logging.
func (a *App) SendMessage(text string, voiceInput bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	_, err := a.services.Conversation.SendMessage(a.context(), text, domain.ChatOptions{VoiceInput: voiceInput})
	return err
}

// Summarize requests a summary for the given range. Dates are passed through
// without validation.
func (a *App) Summarize(dateStart string, dateEnd string, voiceOn bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	_, err := a.services.Conversation.Summarize(a.context(), domain.DateRange{
		Start:   dateStart,
		End:     dateEnd,
		VoiceOn: voiceOn,
	})
	return err
}

// StartRecording acquires the microphone. A recording already in progress is
// left running.
func (a *App) StartRecording(voiceInput bool) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.services.Controller.Start(a.context(), domain.ChatOptions{VoiceInput: voiceInput})
	if err != nil && !errors.Is(err, usecase.ErrSessionActive) {
		return domain.Status{}, err
	}
	return a.services.Controller.Status(), nil
}

// StopRecording uploads the recording and sends its transcript. Without an
// active recording it only clears the indicator.
func (a *App) StopRecording() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	result, err := a.services.Controller.Stop(a.context())
	if errors.Is(err, usecase.ErrNoActiveSession) {
		return domain.StopResult{}, nil
	}
	return result, err
}

// AbortRecording discards an in-progress recording.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Controller.Abort(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return err
	}
	return nil
}

// GetStatus returns the current capture status.
func (a *App) GetStatus() domain.Status {
	if a.services.Controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.services.Controller.Status()
}

// GetTranscript returns every transcript line so far.
func (a *App) GetTranscript() []domain.Message {
	if a.services.Conversation == nil {
		return []domain.Message{}
	}
	return a.services.Conversation.Transcript()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"serverUrl":        a.cfg.Server.URL,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"journal":          a.cfg.Journal.Path,
		"metrics":          a.cfg.Metrics.Addr,
	}
}

// context is the Wails context once started.
func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Controller == nil || a.services.Conversation == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// AppendMessage emits a new transcript line to the frontend.
func (a *App) AppendMessage(msg domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventMessage, msg)
}

// SetInput replaces the message input field text.
func (a *App) SetInput(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInput, map[string]string{"text": text})
}

// SessionStateChanged emits capture lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": domain.StatusMessage(reason),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeMicUnavailable:
		return "Microphone unavailable"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeTranscription:
		return "Transcription failed"
	case domain.ErrorCodeChat:
		return "Message could not be sent"
	case domain.ErrorCodeSummarize:
		return "Summary failed"
	case domain.ErrorCodePlayback:
		return "Audio playback failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
