package usecase

import (
	"errors"
	"fmt"
	"io"
	"os"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

// pumpAudioChunks appends everything the recorder yields to the session until
// the recorder ends. There is no upper bound on accumulated audio.
func pumpAudioChunks(session *recordingSession, chunkSize int, view ports.View) {
	defer close(session.pumpDone)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := session.audio.Read(buf)
		if n > 0 {
			session.appendChunk(buf[:n])
		}
		if err != nil {
			if !isCaptureEnd(err) {
				view.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

func isCaptureEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
