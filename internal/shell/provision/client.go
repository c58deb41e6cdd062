// Package provision provides HTTP clients for the gateway's external
// collaborators: the Compute Provisioner, the Network Provisioner, and the
// Domain Directory. Each collaborator is reached through its own base URL;
// transient transport failures are retried, non-2xx responses are not.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// =============================================================================
// Shared HTTP Client
// =============================================================================

// Config holds collaborator client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// httpClient is the retrying HTTP client shared by the collaborator clients.
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func newHTTPClient(cfg Config, logger *slog.Logger) *httpClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // suppress default logging
	retryClient.HTTPClient.Timeout = timeout

	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  retryClient.StandardClient(),
		logger:  logger,
	}
}

// do sends a JSON request and decodes a 2xx JSON response into out (if
// non-nil). Non-2xx responses come back as *StatusError.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: string(detail)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Status Error
// =============================================================================

// StatusError is a non-2xx collaborator response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// upstreamError classifies a collaborator failure, preserving NotFound when
// the collaborator says so.
func upstreamError(collaborator string, err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return domain.E(domain.KindNotFound, collaborator+" record not found", err)
	}
	return domain.E(domain.KindUpstream, collaborator+" request failed", err)
}
