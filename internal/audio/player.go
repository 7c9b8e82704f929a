package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"timescribe/internal/domain"
)

// FFPlayPlayer plays clips by piping them into ffplay. Each Play starts an
// independent process; clips are not queued behind one another.
type FFPlayPlayer struct {
	command string
	logger  *slog.Logger
}

func NewFFPlayPlayer(command string, logger *slog.Logger) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FFPlayPlayer{command: command, logger: logger}
}

// Play starts playback and returns without waiting for it to finish.
func (p *FFPlayPlayer) Play(ctx context.Context, clip domain.AudioClip) error {
	if len(clip.Data) == 0 {
		return errors.New("nothing to play")
	}

	cmd := exec.CommandContext(ctx, p.command, "-nodisp", "-autoexit", "-loglevel", "error", "-i", "pipe:0")
	cmd.Stdin = bytes.NewReader(clip.Data)
	var stderr lockedBuffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			p.logger.Warn("playback ended with error",
				"error", err,
				"mime_type", clip.MimeType,
				"stderr", stringsTrimSpaceSafe(stderr.String()),
			)
			return
		}
		p.logger.Debug("playback finished", "bytes", len(clip.Data), "mime_type", clip.MimeType)
	}()
	return nil
}
