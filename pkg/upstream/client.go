// Package upstream sends chat completion requests to OpenAI-compatible
// providers, falling back along the router's chain on transport errors and
// 5xx responses.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/logging"
	"github.com/pario-ai/semcache/pkg/metrics"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/router"
)

// ErrAllProvidersFailed is returned when every route failed with a retryable
// error.
var ErrAllProvidersFailed = errors.New("all upstream providers failed")

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 1024

// StatusError is a non-retryable upstream HTTP failure.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Resolver expands a model name into ordered routes.
type Resolver interface {
	Resolve(model string) ([]router.Route, error)
}

// Client performs chat completions with provider fallback.
type Client struct {
	resolver Resolver
	http     *http.Client
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

// New creates a Client. httpClient, log and m may be nil.
func New(resolver Resolver, httpClient *http.Client, log logrus.FieldLogger, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		resolver: resolver,
		http:     httpClient,
		log:      log.WithField("component", "upstream"),
		metrics:  m,
	}
}

// Complete sends req to the first healthy route for req.Model and decodes the
// response.
func (c *Client) Complete(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	routes, err := c.resolver.Resolve(req.Model)
	if err != nil {
		return nil, fmt.Errorf("resolve model %q: %w", req.Model, err)
	}

	var lastErr error
	for _, route := range routes {
		attempt := req
		attempt.Model = route.Model

		status, body, err := c.do(ctx, route.Provider.URL, route.Provider.APIKey, attempt)
		if isRetryable(err, status) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.metrics.IncrementLLMRequests(route.Provider.Name, "retry")
			c.log.WithFields(logrus.Fields{
				"provider": route.Provider.Name,
				"status":   status,
			}).WithError(err).Warn("upstream failed, trying next")
			if err == nil {
				err = &StatusError{Provider: route.Provider.Name, StatusCode: status, Body: truncate(body)}
			}
			lastErr = err
			continue
		}
		if status < 200 || status >= 300 {
			c.metrics.IncrementLLMRequests(route.Provider.Name, "error")
			return nil, &StatusError{Provider: route.Provider.Name, StatusCode: status, Body: truncate(body)}
		}

		var resp models.ChatCompletionResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			c.metrics.IncrementLLMRequests(route.Provider.Name, "error")
			return nil, fmt.Errorf("decode %s response: %w", route.Provider.Name, err)
		}
		c.metrics.IncrementLLMRequests(route.Provider.Name, "ok")
		return &resp, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}

func (c *Client) do(ctx context.Context, baseURL, apiKey string, req models.ChatCompletionRequest) (int, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// isRetryable reports whether the next route should be tried.
func isRetryable(err error, statusCode int) bool {
	if err != nil {
		return true
	}
	return statusCode >= 500
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
