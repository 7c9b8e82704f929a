package mcptools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"timescribe/internal/domain"
	"timescribe/internal/journal"
	"timescribe/internal/usecase"
)

type fakeConversation struct {
	mu      sync.Mutex
	lines   []domain.Message
	err     error
	queries []domain.DateRange
}

func (f *fakeConversation) add(role domain.Role, text string, replyTo int) domain.Message {
	msg := domain.Message{ID: len(f.lines) + 1, Role: role, Text: text, ReplyTo: replyTo}
	f.lines = append(f.lines, msg)
	return msg
}

func (f *fakeConversation) SendMessage(_ context.Context, text string, _ domain.ChatOptions) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.add(domain.RoleUser, text, 0)
	if f.err != nil {
		f.add(domain.RoleError, "Error: "+f.err.Error(), user.ID)
		return domain.Message{}, f.err
	}
	return f.add(domain.RoleAssistant, "reply to "+text, user.ID), nil
}

func (f *fakeConversation) Summarize(_ context.Context, query domain.DateRange) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	status := f.add(domain.RoleSystem, "Summarizing...", 0)
	return f.add(domain.RoleAssistant, "quiet week", status.ID), nil
}

type fakeHistory struct {
	entries []journal.Entry
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %#v", result.Content[0])
	}
	return text.Text
}

func TestSendMessageReturnsReply(t *testing.T) {
	conv := &fakeConversation{}
	conv.add(domain.RoleAssistant, "older reply", 0)
	tools := New(conv, nil)

	result, err := tools.SendMessage(context.Background(), call(map[string]any{"message": "slept well"}))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if got := resultText(t, result); got != "reply to slept well" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSendMessageValidatesAndReportsFailures(t *testing.T) {
	conv := &fakeConversation{}
	tools := New(conv, nil)

	result, _ := tools.SendMessage(context.Background(), call(map[string]any{}))
	if !result.IsError {
		t.Fatal("missing message should be a tool error")
	}
	result, _ = tools.SendMessage(context.Background(), call(map[string]any{"message": "  "}))
	if !result.IsError {
		t.Fatal("blank message should be a tool error")
	}

	conv.err = errors.New("server down")
	result, _ = tools.SendMessage(context.Background(), call(map[string]any{"message": "hi"}))
	if !result.IsError || !strings.Contains(resultText(t, result), "server down") {
		t.Fatalf("expected failure to surface, got %#v", result)
	}
}

// gatedChat holds the reply to "slow" until release is closed.
type gatedChat struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedChat) Chat(_ context.Context, message string, _ domain.ChatOptions) (string, error) {
	if message == "slow" {
		close(g.entered)
		<-g.release
	}
	return "reply to " + message, nil
}

type staticSummarizer struct{}

func (staticSummarizer) Summarize(_ context.Context, _ domain.DateRange) (domain.SummaryResult, error) {
	return domain.SummaryResult{Summary: "quiet week"}, nil
}

type silentPlayer struct{}

func (silentPlayer) Play(context.Context, domain.AudioClip) error { return nil }

func TestSendMessageOverlappingCallsGetTheirOwnReplies(t *testing.T) {
	chat := &gatedChat{entered: make(chan struct{}), release: make(chan struct{})}
	view := NewLogView(slog.New(slog.DiscardHandler))
	conv := usecase.NewConversation(chat, staticSummarizer{}, silentPlayer{}, view, nil, nil)
	tools := New(conv, nil)

	slow := make(chan *mcp.CallToolResult, 1)
	go func() {
		result, _ := tools.SendMessage(context.Background(), call(map[string]any{"message": "slow"}))
		slow <- result
	}()
	<-chat.entered

	fast, err := tools.SendMessage(context.Background(), call(map[string]any{"message": "fast"}))
	if err != nil {
		t.Fatalf("fast send: %v", err)
	}
	close(chat.release)

	if got := resultText(t, fast); got != "reply to fast" {
		t.Fatalf("fast call got %q", got)
	}
	if got := resultText(t, <-slow); got != "reply to slow" {
		t.Fatalf("slow call got %q", got)
	}
	if lines := conv.Transcript(); len(lines) != 4 {
		t.Fatalf("expected four transcript lines, got %+v", lines)
	}
}

func TestSummarizePassesDatesVerbatim(t *testing.T) {
	conv := &fakeConversation{}
	tools := New(conv, nil)

	result, err := tools.Summarize(context.Background(), call(map[string]any{"date_start": "yesterday"}))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got := resultText(t, result); got != "quiet week" {
		t.Fatalf("unexpected summary %q", got)
	}
	if conv.queries[0].Start != "yesterday" || conv.queries[0].End != "" {
		t.Fatalf("unexpected query %#v", conv.queries[0])
	}
}

func TestRecentMessages(t *testing.T) {
	at := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	history := &fakeHistory{entries: []journal.Entry{
		{Role: domain.RoleUser, Text: "coffee", CreatedAt: at},
		{Role: domain.RoleAssistant, Text: "noted", CreatedAt: at},
	}}
	tools := New(&fakeConversation{}, history)

	result, _ := tools.RecentMessages(context.Background(), call(map[string]any{"limit": float64(5)}))
	got := resultText(t, result)
	if history.limit != 5 {
		t.Fatalf("unexpected limit %d", history.limit)
	}
	if !strings.Contains(got, "user: coffee") || !strings.Contains(got, "assistant: noted") {
		t.Fatalf("unexpected output %q", got)
	}

	disabled := New(&fakeConversation{}, nil)
	result, _ = disabled.RecentMessages(context.Background(), call(nil))
	if !result.IsError {
		t.Fatal("disabled journal should be a tool error")
	}
}

func TestNewServerBuilds(t *testing.T) {
	if NewServer("timescribe", "test", New(&fakeConversation{}, nil)) == nil {
		t.Fatal("expected server")
	}
}

func TestLogViewWritesErrors(t *testing.T) {
	var buf strings.Builder
	view := NewLogView(slog.New(slog.NewTextHandler(&buf, nil)))

	view.AppendMessage(domain.Message{ID: 1, Role: domain.RoleUser})
	view.SetInput("ignored")
	view.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonIdle)
	view.SessionError(domain.ErrorCodeChat, "offline")

	out := buf.String()
	if !strings.Contains(out, "code=chat") || !strings.Contains(out, "detail=offline") {
		t.Fatalf("unexpected log output %q", out)
	}
	if strings.Contains(out, "transcript line") {
		t.Fatalf("debug lines should be filtered at info level: %q", out)
	}
}
