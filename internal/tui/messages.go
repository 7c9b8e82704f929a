package tui

import "timescribe/internal/domain"

// Messages delivered by the Bridge from use case goroutines.
type (
	lineAppendedMsg struct{ line domain.Message }
	inputSetMsg     struct{ text string }
	sessionStateMsg struct {
		state  domain.SessionState
		reason domain.SessionStateReason
	}
	sessionErrorMsg struct {
		code   domain.ErrorCode
		detail string
	}
)

// opDoneMsg reports that a background operation returned. Failures have
// already reached the model through the Bridge.
type opDoneMsg struct {
	op  string
	err error
}

type clearErrorMsg struct{ seq int }
