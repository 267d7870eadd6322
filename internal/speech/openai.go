package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// ClientOption configures the transcription and speech clients.
type ClientOption func(*api)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(a *api) { a.http.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(a *api) { a.http = c }
}

// api is the connection shared by the audio endpoints.
type api struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

func newAPI(baseURL, apiKey string, log *logger.Logger, opts []ClientOption) api {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	a := api{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		log:     log,
	}
	for _, o := range opts {
		o(&a)
	}
	return a
}

// post sends body to {baseURL}/{path} and returns the response body. Any
// status other than 200 becomes a *domain.ServiceError carrying the payload.
func (a *api) post(ctx context.Context, service, path, contentType string, body io.Reader) ([]byte, error) {
	url := a.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", service, err)
	}
	req.Header.Set("Content-Type", contentType)
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	req.Header.Set("User-Agent", "SmartLearn/1.0")

	a.log.Debug("%s: POST %s", service, url)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", service, err)
	}

	if resp.StatusCode != http.StatusOK {
		svc := &domain.ServiceError{Service: service, Status: resp.StatusCode, Body: string(respBody)}
		a.log.Warn("%s: status %d: %s", service, resp.StatusCode, truncateForLog(svc.Message(), 200))
		return nil, svc
	}
	return respBody, nil
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
