// Package httpclient provides the HTTP seam used by vendor clients: a small
// Do interface that tests can replace, and a client that bounds every call
// with a timeout and logs its outcome. Calls are never retried; callers
// report failures instead.
package httpclient

import (
	"net/http"
	"time"

	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

// DefaultTimeout bounds a single vendor call when none is configured.
const DefaultTimeout = 60 * time.Second

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *LoggingClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LoggingClient wraps an HTTPDoer and logs each request with its status and
// latency. Query strings are never logged since they may carry API keys.
type LoggingClient struct {
	client HTTPDoer
	name   string
}

// New wraps client for the named vendor. If client is nil, an http.Client
// with DefaultTimeout is used.
func New(name string, client HTTPDoer) *LoggingClient {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &LoggingClient{client: client, name: name}
}

// NewWithTimeout builds a LoggingClient over a fresh http.Client. A
// non-positive timeout means DefaultTimeout.
func NewWithTimeout(name string, timeout time.Duration, transport http.RoundTripper) *LoggingClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return New(name, &http.Client{Timeout: timeout, Transport: transport})
}

// Do executes the request once.
func (c *LoggingClient) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		logger.Warn("vendor request failed",
			"vendor", c.name,
			"method", req.Method,
			"path", req.URL.Path,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("vendor request returned error status",
			"vendor", c.name,
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"elapsed", elapsed,
		)
		return resp, nil
	}

	logger.Debug("vendor request completed",
		"vendor", c.name,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", elapsed,
	)
	return resp, nil
}
