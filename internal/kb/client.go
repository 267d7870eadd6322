// Package kb queries the knowledge-base endpoint that answers the user's
// transcribed question: POST {"query": text} and read {"answer": ...}.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// DefaultTimeout bounds one knowledge-base request.
const DefaultTimeout = 10 * time.Second

// Option configures the Client.
type Option func(*Client)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// Client answers questions from a knowledge-base endpoint. An empty URL is
// a valid, unconfigured client: Configured reports false and Ask fails
// without a request.
type Client struct {
	url  string
	http *http.Client
	log  *logger.Logger
}

var _ domain.Answerer = (*Client)(nil)

type query struct {
	Query string `json:"query"`
}

type reply struct {
	Answer *string `json:"answer"`
}

// New creates a knowledge-base client for url.
func New(url string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		url: url,
		http: &http.Client{
			Timeout: DefaultTimeout,
			// Answers are served directly; a redirect means a misconfigured URL.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether an endpoint URL is set.
func (c *Client) Configured() bool { return c.url != "" }

// Ask posts text as a query and returns the answer field.
func (c *Client) Ask(ctx context.Context, text string) (string, error) {
	if !c.Configured() {
		c.log.Error("kb: URL is missing")
		return "", fmt.Errorf("kb: %w", domain.ErrNotConfigured)
	}

	jsonData, err := json.Marshal(query{Query: text})
	if err != nil {
		return "", fmt.Errorf("kb: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("kb: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("kb: POST %s (%d bytes)", c.url, len(jsonData))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("kb: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("kb: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &domain.ServiceError{Service: "kb", Status: resp.StatusCode, Body: string(respBody)}
	}

	var r reply
	if err := json.Unmarshal(respBody, &r); err != nil {
		return "", fmt.Errorf("kb: unmarshal response: %w", err)
	}
	if r.Answer == nil {
		return "", fmt.Errorf("kb: response has no answer: %w", domain.ErrEmptyResult)
	}

	c.log.Info("kb: answer (%d chars)", len(*r.Answer))
	return *r.Answer, nil
}
