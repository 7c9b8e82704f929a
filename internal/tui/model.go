// Package tui is the terminal front end: a transcript pane, a message input,
// a summary date range and a recording indicator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"timescribe/internal/domain"
	"timescribe/internal/usecase"
)

// Conversation is the chat and summary surface the model drives.
type Conversation interface {
	SendMessage(ctx context.Context, text string, opts domain.ChatOptions) (domain.Message, error)
	Summarize(ctx context.Context, query domain.DateRange) (domain.Message, error)
}

// Recorder is the capture surface the model drives.
type Recorder interface {
	Start(ctx context.Context, opts domain.ChatOptions) error
	Stop(ctx context.Context) (domain.StopResult, error)
	Abort() error
}

type field int

const (
	fieldMessage field = iota
	fieldStart
	fieldEnd
	fieldCount
)

const errorDisplayTime = 6 * time.Second

// Model is the root bubbletea model.
type Model struct {
	conv     Conversation
	recorder Recorder

	message   textinput.Model
	dateStart textinput.Model
	dateEnd   textinput.Model
	focus     field

	voiceChat    bool
	voiceSummary bool

	lines    []domain.Message
	state    domain.SessionState
	status   string
	errText  string
	errSeq   int
	inflight int

	width  int
	height int
}

func New(conv Conversation, recorder Recorder) Model {
	msg := textinput.New()
	msg.Placeholder = "Write a journal entry..."
	msg.CharLimit = 4000
	msg.Prompt = "> "
	msg.Focus()

	start := textinput.New()
	start.Placeholder = "start date"
	start.CharLimit = 64
	start.Prompt = ""

	end := textinput.New()
	end.Placeholder = "end date"
	end.CharLimit = 64
	end.Prompt = ""

	return Model{
		conv:      conv,
		recorder:  recorder,
		message:   msg,
		dateStart: start,
		dateEnd:   end,
		state:     domain.SessionStateIdle,
		width:     100,
		height:    30,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.message.Width = max(10, msg.Width-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case lineAppendedMsg:
		m.lines = append(m.lines, msg.line)
		return m, nil

	case inputSetMsg:
		m.message.SetValue(msg.text)
		m.message.CursorEnd()
		return m, nil

	case sessionStateMsg:
		m.state = msg.state
		m.status = domain.StatusMessage(msg.reason)
		return m, nil

	case sessionErrorMsg:
		m.errSeq++
		m.errText = fmt.Sprintf("%s: %s", msg.code, msg.detail)
		seq := m.errSeq
		return m, tea.Tick(errorDisplayTime, func(time.Time) tea.Msg {
			return clearErrorMsg{seq: seq}
		})

	case clearErrorMsg:
		if msg.seq == m.errSeq {
			m.errText = ""
		}
		return m, nil

	case opDoneMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil

	case "shift+tab":
		m.setFocus((m.focus - 1 + fieldCount) % fieldCount)
		return m, nil

	case "ctrl+r":
		return m.toggleRecording()

	case "esc":
		if m.state == domain.SessionStateListening {
			m.inflight++
			return m, abortCmd(m.recorder)
		}
		return m, nil

	case "ctrl+v":
		m.voiceChat = !m.voiceChat
		return m, nil

	case "ctrl+o":
		m.voiceSummary = !m.voiceSummary
		return m, nil

	case "enter":
		if m.focus == fieldMessage {
			return m.submitMessage()
		}
		return m.submitSummary()
	}

	return m.updateFocused(msg)
}

func (m Model) submitMessage() (tea.Model, tea.Cmd) {
	text := m.message.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.inflight++
	return m, sendCmd(m.conv, text, domain.ChatOptions{VoiceInput: m.voiceChat})
}

func (m Model) submitSummary() (tea.Model, tea.Cmd) {
	query := domain.DateRange{
		Start:   m.dateStart.Value(),
		End:     m.dateEnd.Value(),
		VoiceOn: m.voiceSummary,
	}
	m.inflight++
	return m, summarizeCmd(m.conv, query)
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	m.inflight++
	if m.state == domain.SessionStateListening {
		return m, stopCmd(m.recorder)
	}
	return m, startCmd(m.recorder, domain.ChatOptions{VoiceInput: m.voiceChat})
}

func (m *Model) setFocus(next field) {
	inputs := []*textinput.Model{&m.message, &m.dateStart, &m.dateEnd}
	for i, input := range inputs {
		if field(i) == next {
			input.Focus()
		} else {
			input.Blur()
		}
	}
	m.focus = next
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldMessage:
		m.message, cmd = m.message.Update(msg)
	case fieldStart:
		m.dateStart, cmd = m.dateStart.Update(msg)
	case fieldEnd:
		m.dateEnd, cmd = m.dateEnd.Update(msg)
	}
	return m, cmd
}

func sendCmd(conv Conversation, text string, opts domain.ChatOptions) tea.Cmd {
	return func() tea.Msg {
		_, err := conv.SendMessage(context.Background(), text, opts)
		return opDoneMsg{op: "chat", err: err}
	}
}

func summarizeCmd(conv Conversation, query domain.DateRange) tea.Cmd {
	return func() tea.Msg {
		_, err := conv.Summarize(context.Background(), query)
		return opDoneMsg{op: "summarize", err: err}
	}
}

func startCmd(recorder Recorder, opts domain.ChatOptions) tea.Cmd {
	return func() tea.Msg {
		err := recorder.Start(context.Background(), opts)
		if errors.Is(err, usecase.ErrSessionActive) {
			err = nil
		}
		return opDoneMsg{op: "record", err: err}
	}
}

func stopCmd(recorder Recorder) tea.Cmd {
	return func() tea.Msg {
		_, err := recorder.Stop(context.Background())
		if errors.Is(err, usecase.ErrNoActiveSession) {
			err = nil
		}
		return opDoneMsg{op: "stop", err: err}
	}
}

func abortCmd(recorder Recorder) tea.Cmd {
	return func() tea.Msg {
		err := recorder.Abort()
		if errors.Is(err, usecase.ErrNoActiveSession) {
			err = nil
		}
		return opDoneMsg{op: "abort", err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("timescribe"))
	b.WriteString("  ")
	b.WriteString(m.renderIndicator())
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(10, m.width))))
	b.WriteString("\n")

	for _, line := range m.visibleLines() {
		b.WriteString(renderLine(line))
		b.WriteString("\n")
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(10, m.width))))
	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
	}
	b.WriteString(m.message.View())
	b.WriteString("\n")
	b.WriteString(m.fieldLabel(fieldStart, "From "))
	b.WriteString(m.dateStart.View())
	b.WriteString(m.fieldLabel(fieldEnd, "  To "))
	b.WriteString(m.dateEnd.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderIndicator() string {
	if m.status == "" {
		if m.inflight > 0 {
			return statusStyle.Render("working...")
		}
		return ""
	}
	if m.state == domain.SessionStateListening {
		return listeningStyle.Render("● " + m.status)
	}
	return statusStyle.Render(m.status)
}

// visibleLines returns the tail of the transcript that fits the window.
func (m Model) visibleLines() []domain.Message {
	room := m.height - 8
	if room < 1 {
		room = 1
	}
	if len(m.lines) <= room {
		return m.lines
	}
	return m.lines[len(m.lines)-room:]
}

func renderLine(line domain.Message) string {
	switch line.Role {
	case domain.RoleUser:
		return userLabelStyle.Render("You: ") + line.Text
	case domain.RoleAssistant:
		return assistantLabelStyle.Render("AI: ") + line.Text
	case domain.RoleError:
		return errorStyle.Render(line.Text)
	default:
		return systemStyle.Render(line.Text)
	}
}

func (m Model) fieldLabel(f field, label string) string {
	if m.focus == f {
		return activeLabelStyle.Render(label)
	}
	return labelStyle.Render(label)
}

func (m Model) renderFooter() string {
	keys := [][2]string{
		{"enter", "send/summarize"},
		{"tab", "next field"},
		{"ctrl+r", lo.Ternary(m.state == domain.SessionStateListening, "stop", "record")},
		{"esc", "discard"},
		{"ctrl+v", "voice " + onOff(m.voiceChat)},
		{"ctrl+o", "spoken summary " + onOff(m.voiceSummary)},
		{"ctrl+c", "quit"},
	}
	parts := lo.Map(keys, func(k [2]string, _ int) string {
		return footerKeyStyle.Render(k[0]) + " " + footerDescStyle.Render(k[1])
	})
	return strings.Join(parts, "  ")
}

func onOff(v bool) string {
	return lo.Ternary(v, "on", "off")
}
