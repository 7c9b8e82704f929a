package mcptools

import (
	"log/slog"

	"timescribe/internal/domain"
)

// LogView is a headless view. stdout carries the protocol, so UI
// notifications only go to the log.
type LogView struct {
	logger *slog.Logger
}

func NewLogView(logger *slog.Logger) *LogView {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogView{logger: logger}
}

func (v *LogView) AppendMessage(msg domain.Message) {
	v.logger.Debug("transcript line", slog.Int("id", msg.ID), slog.String("role", string(msg.Role)), slog.Int("reply_to", msg.ReplyTo))
}

func (v *LogView) SetInput(string) {}

func (v *LogView) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	v.logger.Debug("session state", slog.String("state", string(state)), slog.String("reason", string(reason)))
}

func (v *LogView) SessionError(code domain.ErrorCode, detail string) {
	v.logger.Warn("session error", slog.String("code", string(code)), slog.String("detail", detail))
}
