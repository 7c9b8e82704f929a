package usecase

import (
	"strings"

	"timescribe/internal/domain"
	"timescribe/internal/ports"
)

type transcriptFinalizer struct {
	rules ports.RulesEngine
	view  ports.View
}

func newTranscriptFinalizer(rules ports.RulesEngine, view ports.View) transcriptFinalizer {
	return transcriptFinalizer{rules: rules, view: view}
}

// Finalize rewrites the raw transcription and places it in the input field.
// A rules failure is reported and the raw text is used instead.
func (f transcriptFinalizer) Finalize(raw string) string {
	text := strings.TrimSpace(raw)
	if f.rules != nil && text != "" {
		rewritten, err := f.rules.Apply(text)
		if err != nil {
			f.view.SessionError(domain.ErrorCodeRules, err.Error())
		} else {
			text = rewritten
		}
	}

	f.view.SetInput(text)
	return text
}
