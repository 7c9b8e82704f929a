package usecase

import (
	"bytes"
	"context"
	"sync"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

// recordingSession owns one recording: its recorder handle and the chunks it
// has produced. A new session starts with no chunks.
type recordingSession struct {
	id     string
	opts   domain.ChatOptions
	cancel context.CancelFunc
	audio  ports.AudioSession

	// claimed is guarded by the controller mutex. The first of Stop, Abort or
	// stream termination to claim the session finishes it.
	claimed bool

	chunksMu sync.Mutex
	chunks   [][]byte

	pumpDone chan struct{}
}

func (s *recordingSession) appendChunk(p []byte) {
	chunk := make([]byte, len(p))
	copy(chunk, p)

	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()
	s.chunks = append(s.chunks, chunk)
}

func (s *recordingSession) chunkCount() int {
	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()
	return len(s.chunks)
}

// finalize concatenates the accumulated chunks and discards them. The result
// is never nil, even with zero chunks.
func (s *recordingSession) finalize(mimeType string) domain.AudioClip {
	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()

	data := bytes.Join(s.chunks, nil)
	if data == nil {
		data = []byte{}
	}
	s.chunks = nil
	return domain.AudioClip{Data: data, MimeType: mimeType}
}

func (s *recordingSession) discard() {
	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()
	s.chunks = nil
}
