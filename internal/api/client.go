// Package api talks to the journaling server's /chat, /transcribe and
// /summarize endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"timescribe/internal/domain"
)

const (
	EndpointChat       = "/chat"
	EndpointTranscribe = "/transcribe"
	EndpointSummarize  = "/summarize"
)

// ErrMalformedResponse is returned when a 2xx body lacks the expected field.
var ErrMalformedResponse = errors.New("malformed server response")

// StatusError is a non-2xx server response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: HTTP error %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: HTTP error %d: %s", e.Endpoint, e.Code, body)
}

// RequestObserver records the outcome of each round trip.
type RequestObserver interface {
	ObserveRequest(endpoint string, outcome string, elapsed time.Duration)
}

// Config contains client configuration. A zero Timeout means requests are
// bounded only by their context.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client implements the chat, transcription and summary ports over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	observer   RequestObserver
	userAgent  string
}

// NewClient validates the base URL. observer may be nil.
func NewClient(cfg Config, observer RequestObserver) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("server URL cannot be empty")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme %q", base.Scheme)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "timescribe/1.0"
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		observer:   observer,
		userAgent:  cfg.UserAgent,
	}, nil
}

type chatRequest struct {
	Message           string `json:"message"`
	IsVoiceChecked    bool   `json:"isVoiceChecked,omitempty"`
	FromTranscription bool   `json:"fromTranscription,omitempty"`
}

type chatResponse struct {
	Response *string `json:"response"`
}

type transcribeResponse struct {
	Transcription *string `json:"transcription"`
}

type summarizeRequest struct {
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
	VoiceOn   bool   `json:"voice_on,omitempty"`
}

type summarizeResponse struct {
	Summary   *string `json:"summary"`
	AudioData string  `json:"audio_data"`
	MimeType  string  `json:"mime_type"`
}

// Chat posts a message. JSON replies carry the text in "response"; a
// text/plain reply is the streamed answer itself.
func (c *Client) Chat(ctx context.Context, message string, opts domain.ChatOptions) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Message:           message,
		IsVoiceChecked:    opts.VoiceInput,
		FromTranscription: opts.FromTranscription,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	body, contentType, err := c.post(ctx, EndpointChat, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	if isPlainText(contentType) {
		return strings.TrimRight(string(body), "\r\n"), nil
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: parse response: %w", EndpointChat, err)
	}
	if resp.Response == nil {
		return "", fmt.Errorf("%s: %w: missing response", EndpointChat, ErrMalformedResponse)
	}
	return *resp.Response, nil
}

// Transcribe uploads a recording as the multipart field "audio".
func (c *Client) Transcribe(ctx context.Context, filename string, clip domain.AudioClip) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	mimeType := clip.MimeType
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	body, _, err := c.post(ctx, EndpointTranscribe, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var resp transcribeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: parse response: %w", EndpointTranscribe, err)
	}
	if resp.Transcription == nil {
		return "", fmt.Errorf("%s: %w: missing transcription", EndpointTranscribe, ErrMalformedResponse)
	}
	return *resp.Transcription, nil
}

// Summarize requests a summary for a date range. Dates are sent verbatim.
func (c *Client) Summarize(ctx context.Context, query domain.DateRange) (domain.SummaryResult, error) {
	payload, err := json.Marshal(summarizeRequest{
		DateStart: query.Start,
		DateEnd:   query.End,
		VoiceOn:   query.VoiceOn,
	})
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("encode summarize request: %w", err)
	}

	body, _, err := c.post(ctx, EndpointSummarize, "application/json", bytes.NewReader(payload))
	if err != nil {
		return domain.SummaryResult{}, err
	}

	var resp summarizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.SummaryResult{}, fmt.Errorf("%s: parse response: %w", EndpointSummarize, err)
	}
	if resp.Summary == nil {
		return domain.SummaryResult{}, fmt.Errorf("%s: %w: missing summary", EndpointSummarize, ErrMalformedResponse)
	}
	return domain.SummaryResult{
		Summary:   *resp.Summary,
		AudioData: resp.AudioData,
		MimeType:  resp.MimeType,
	}, nil
}

func (c *Client) post(ctx context.Context, endpoint string, contentType string, body io.Reader) ([]byte, string, error) {
	started := time.Now()
	respBody, respType, err := c.do(ctx, endpoint, contentType, body)
	c.observe(endpoint, err, time.Since(started))
	return respBody, respType, err
}

func (c *Client) do(ctx context.Context, endpoint string, contentType string, body io.Reader) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(endpoint).String(), body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: create request: %w", endpoint, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: read response body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, resp.Header.Get("Content-Type"), nil
}

func (c *Client) observe(endpoint string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(endpoint, outcome(err), elapsed)
}

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain"
}
