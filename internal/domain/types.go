package domain

import "time"

// SessionState models the recording lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateListening SessionState = "listening"
	SessionStateStopping  SessionState = "stopping"
	SessionStateUploading SessionState = "uploading"
	SessionStateFailed    SessionState = "failed"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonIdle                SessionStateReason = "idle"
	SessionReasonListening           SessionStateReason = "listening"
	SessionReasonMicUnavailable      SessionStateReason = "mic_unavailable"
	SessionReasonRecordingStopped    SessionStateReason = "recording_stopped"
	SessionReasonUploading           SessionStateReason = "uploading"
	SessionReasonTranscribed         SessionStateReason = "transcribed"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
)

// StatusMessage is the text shown in the listening indicator for a reason.
// Reasons that end or suspend capture map to the empty string.
func StatusMessage(reason SessionStateReason) string {
	switch reason {
	case SessionReasonListening:
		return "Listening..."
	case SessionReasonMicUnavailable:
		return "Microphone unavailable"
	case SessionReasonTranscriptionFailed:
		return "Transcription failed"
	default:
		return ""
	}
}

// ErrorCode identifies the user-facing error categories.
type ErrorCode string

const (
	ErrorCodeStartup        ErrorCode = "startup"
	ErrorCodeMicUnavailable ErrorCode = "mic_unavailable"
	ErrorCodeAudioStop      ErrorCode = "audio_stop"
	ErrorCodeAudioStream    ErrorCode = "audio_stream"
	ErrorCodeTranscription  ErrorCode = "transcription"
	ErrorCodeRules          ErrorCode = "rules"
	ErrorCodeChat           ErrorCode = "chat"
	ErrorCodeSummarize      ErrorCode = "summarize"
	ErrorCodePlayback       ErrorCode = "playback"
)

// Role tags who a transcript line belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// Message is one transcript line. ID is the 1-based transcript position and
// ReplyTo, when non-zero, is the ID of the line this one answers.
type Message struct {
	ID      int       `json:"id"`
	Role    Role      `json:"role"`
	Text    string    `json:"text"`
	ReplyTo int       `json:"replyTo,omitempty"`
	At      time.Time `json:"at"`
}

// ChatOptions travel with a message to the chat endpoint.
type ChatOptions struct {
	VoiceInput        bool `json:"voiceInput"`
	FromTranscription bool `json:"fromTranscription"`
}

// DateRange is a summarize query. Bounds are passed through verbatim.
type DateRange struct {
	Start   string `json:"dateStart"`
	End     string `json:"dateEnd"`
	VoiceOn bool   `json:"voiceOn"`
}

// SummaryResult is the summarize endpoint response. AudioData is base64.
type SummaryResult struct {
	Summary   string `json:"summary"`
	AudioData string `json:"audioData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
}

// AudioClip is a binary audio payload and its media type.
type AudioClip struct {
	Data     []byte
	MimeType string
}

// StopResult is returned once recording is stopped and transcription is handed off.
type StopResult struct {
	SessionID     string `json:"sessionId"`
	Bytes         int    `json:"bytes"`
	Transcription string `json:"transcription"`
	Sent          bool   `json:"sent"`
}

// Status summarizes the current capture status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}
