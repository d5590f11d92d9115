// Package resiliency wraps http.Client with the retry behavior used for
// artifact downloads: bounded attempts, exponential backoff with jitter,
// and a per-attempt timeout.
package resiliency

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"time"
)

const (
	// DefaultMaxAttempts bounds the retry loop. One initial attempt plus
	// two retries; transient faults beyond that are surfaced to the caller.
	DefaultMaxAttempts = 3

	// DefaultTimeout is the per-attempt HTTP timeout.
	DefaultTimeout = 30 * time.Second

	baseBackoff = 200 * time.Millisecond
)

// RetryClient wraps http.Client with a bounded retry loop. Transport errors
// and 5xx responses are retried; any other response is returned as-is.
type RetryClient struct {
	client      *http.Client
	maxAttempts int
}

// NewRetryClient creates a client with the given per-attempt timeout and
// attempt bound. Zero values select the defaults.
func NewRetryClient(timeout time.Duration, maxAttempts int) *RetryClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RetryClient{
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
	}
}

// Do executes req with bounded retries. The request must have no body
// (downloads are GETs) so it can be reissued safely.
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for i := 0; i < c.maxAttempts; i++ {
		resp, err = c.client.Do(req)

		// Success, or a definitive response the caller must interpret
		// (404 and friends are not retryable).
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if i == c.maxAttempts-1 {
			break
		}

		// A retried response's body must be drained before reissuing.
		if err == nil {
			_ = resp.Body.Close()
		}

		// Backoff: base * 2^i + jitter, interruptible by request context.
		backoff := time.Duration(math.Pow(2, float64(i))) * baseBackoff
		jitter := time.Duration(0)
		if n, jerr := rand.Int(rand.Reader, big.NewInt(100)); jerr == nil {
			jitter = time.Duration(n.Int64()) * time.Millisecond
		}

		select {
		case <-req.Context().Done():
			return nil, fmt.Errorf("download canceled during backoff: %w", req.Context().Err())
		case <-time.After(backoff + jitter):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, err)
	}
	return resp, nil
}
