// Package mcptools exposes the journaling client as MCP tools over stdio.
package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"timescribe/internal/domain"
	"timescribe/internal/journal"
)

// Conversation is the chat and summary surface behind the tools.
type Conversation interface {
	SendMessage(ctx context.Context, text string, opts domain.ChatOptions) (domain.Message, error)
	Summarize(ctx context.Context, query domain.DateRange) (domain.Message, error)
}

// History reads journaled lines. It may be nil when the journal is disabled.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

const defaultRecentLimit = 20

// Tools holds the handlers registered on the MCP server.
type Tools struct {
	conv    Conversation
	history History
}

func New(conv Conversation, history History) *Tools {
	return &Tools{conv: conv, history: history}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(name string, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a journal entry to the chat endpoint and return the reply"),
		mcp.WithString("message", mcp.Required(), mcp.Description("Entry text")),
	), tools.SendMessage)

	s.AddTool(mcp.NewTool("summarize",
		mcp.WithDescription("Summarize journal entries between two dates"),
		mcp.WithString("date_start", mcp.Description("Start of the range, passed to the server verbatim")),
		mcp.WithString("date_end", mcp.Description("End of the range, passed to the server verbatim")),
	), tools.Summarize)

	s.AddTool(mcp.NewTool("recent_messages",
		mcp.WithDescription("List recent transcript lines from the local journal"),
		mcp.WithNumber("limit", mcp.Description("Maximum lines to return (default 20)")),
	), tools.RecentMessages)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *Tools) SendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("message is empty"), nil
	}

	reply, err := t.conv.SendMessage(ctx, message, domain.ChatOptions{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(reply.Text), nil
}

func (t *Tools) Summarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := domain.DateRange{
		Start: req.GetString("date_start", ""),
		End:   req.GetString("date_end", ""),
	}

	summary, err := t.conv.Summarize(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(summary.Text), nil
}

func (t *Tools) RecentMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.history == nil {
		return mcp.NewToolResultError("journal is disabled; set TIMESCRIBE_JOURNAL_PATH"), nil
	}
	limit := req.GetInt("limit", defaultRecentLimit)

	entries, err := t.history.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read journal: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No journal entries yet."), nil
	}

	lines := lo.Map(entries, func(e journal.Entry, _ int) string {
		return fmt.Sprintf("[%s] %s: %s", e.CreatedAt.Format(time.DateTime), e.Role, e.Text)
	})
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
