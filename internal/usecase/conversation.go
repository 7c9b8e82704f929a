package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

const defaultSummaryMimeType = "audio/mpeg"

// Sender is the hand-off target for finished transcriptions.
type Sender interface {
	SendMessage(ctx context.Context, text string, opts domain.ChatOptions) (domain.Message, error)
}

// Conversation sends chat messages and summary requests and keeps the
// resulting transcript.
type Conversation struct {
	chat       ports.ChatBackend
	summarizer ports.Summarizer
	player     ports.AudioPlayer
	view       ports.View
	journal    ports.Journal
	logger     *slog.Logger

	sessionID  string
	transcript *transcript
}

// NewConversation builds a conversation client. journal and logger may be nil.
func NewConversation(
	chat ports.ChatBackend,
	summarizer ports.Summarizer,
	player ports.AudioPlayer,
	view ports.View,
	journal ports.Journal,
	logger *slog.Logger,
) *Conversation {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conversation{
		chat:       chat,
		summarizer: summarizer,
		player:     player,
		view:       view,
		journal:    journal,
		logger:     logger,
		sessionID:  uuid.NewString(),
		transcript: newTranscript(view),
	}
}

// SessionID identifies this conversation in the journal.
func (c *Conversation) SessionID() string {
	return c.sessionID
}

// Transcript returns a copy of every line appended so far.
func (c *Conversation) Transcript() []domain.Message {
	return c.transcript.Snapshot()
}

// SendMessage appends the user line, clears the input, posts the message as
// typed and returns the appended reply line. Whitespace-only text is ignored
// and yields a zero Message. The user line stays in the transcript even when
// the request fails; the failure is appended as an error line replying to it.
func (c *Conversation) SendMessage(ctx context.Context, text string, opts domain.ChatOptions) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, nil
	}

	user := c.append(ctx, domain.RoleUser, text, 0)
	c.view.SetInput("")

	reply, err := c.chat.Chat(ctx, text, opts)
	if err != nil {
		c.logger.Warn("chat request failed", "error", err)
		c.append(ctx, domain.RoleError, "Error: "+err.Error(), user.ID)
		c.view.SessionError(domain.ErrorCodeChat, err.Error())
		return domain.Message{}, fmt.Errorf("send message: %w", err)
	}

	return c.append(ctx, domain.RoleAssistant, reply, user.ID), nil
}

// Summarize announces the query, fetches the summary and returns the appended
// summary line. With VoiceOn set, returned audio starts playing before the
// text is appended.
func (c *Conversation) Summarize(ctx context.Context, query domain.DateRange) (domain.Message, error) {
	status := c.append(ctx, domain.RoleSystem, fmt.Sprintf("Summarizing entries from %s to %s...", query.Start, query.End), 0)

	result, err := c.summarizer.Summarize(ctx, query)
	if err != nil {
		c.logger.Warn("summarize request failed", "error", err)
		c.append(ctx, domain.RoleError, "Error: "+err.Error(), status.ID)
		c.view.SessionError(domain.ErrorCodeSummarize, err.Error())
		return domain.Message{}, fmt.Errorf("summarize entries: %w", err)
	}

	if query.VoiceOn {
		c.playSummary(ctx, result)
	}

	return c.append(ctx, domain.RoleAssistant, result.Summary, status.ID), nil
}

func (c *Conversation) playSummary(ctx context.Context, result domain.SummaryResult) {
	if result.AudioData == "" {
		return
	}

	clip, err := DecodeAudio(result.AudioData, result.MimeType)
	if err != nil {
		c.view.SessionError(domain.ErrorCodePlayback, err.Error())
		return
	}

	// Playback outlives the request that produced it.
	if err := c.player.Play(context.WithoutCancel(ctx), clip); err != nil {
		c.logger.Warn("summary playback failed", "error", err, "bytes", len(clip.Data))
		c.view.SessionError(domain.ErrorCodePlayback, err.Error())
	}
}

func (c *Conversation) append(ctx context.Context, role domain.Role, text string, replyTo int) domain.Message {
	msg := c.transcript.Append(role, text, replyTo)
	if c.journal != nil {
		if err := c.journal.Append(ctx, c.sessionID, msg); err != nil {
			c.logger.Warn("journal append failed", "error", err, "id", msg.ID)
		}
	}
	return msg
}

// DecodeAudio turns a base64 payload into a playable clip.
func DecodeAudio(payload string, mimeType string) (domain.AudioClip, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return domain.AudioClip{}, errors.New("empty audio payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return domain.AudioClip{}, fmt.Errorf("decode audio payload: %w", err)
		}
		data = raw
	}

	if mimeType == "" {
		mimeType = defaultSummaryMimeType
	}
	return domain.AudioClip{Data: data, MimeType: mimeType}, nil
}
