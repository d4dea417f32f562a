// Package moderation screens outgoing messages against an external
// profanity-filtering API.
//
// Screening is best-effort: the chat keeps working when the API is down.
// On any failure the original text is passed through unchanged and the
// failure is logged, never surfaced to the sender.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Result is the outcome of screening one message.
type Result struct {
	// Text is the message to store: the censored replacement when the
	// screen matched, otherwise the original.
	Text string

	// Censored indicates the screen rewrote the text.
	Censored bool
}

// Screener screens message text before it is stored.
type Screener interface {
	Screen(ctx context.Context, text string) (Result, error)
}

// Client calls a PurgoMalum-style JSON endpoint:
//
//	GET {base}?text=...  ->  {"result": "censored ****"}
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a screening client for the given endpoint. An empty
// baseURL disables screening entirely (every message passes through).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type screenResponse struct {
	Result string `json:"result"`
}

// Screen runs the text through the filtering API. The returned error is
// advisory: callers are expected to fall back to the original text.
func (c *Client) Screen(ctx context.Context, text string) (Result, error) {
	passthrough := Result{Text: text}
	if c.baseURL == "" {
		return passthrough, nil
	}

	reqURL := c.baseURL + "?text=" + url.QueryEscape(text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return passthrough, fmt.Errorf("failed to build screening request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return passthrough, fmt.Errorf("screening request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return passthrough, fmt.Errorf("screening API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return passthrough, fmt.Errorf("failed to read screening response: %w", err)
	}

	var parsed screenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return passthrough, fmt.Errorf("failed to parse screening response: %w", err)
	}
	if parsed.Result == "" {
		return passthrough, fmt.Errorf("screening response missing result")
	}

	return Result{
		Text:     parsed.Result,
		Censored: parsed.Result != text,
	}, nil
}
