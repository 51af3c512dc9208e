// Package httpretry wraps an HTTP client with bounded retries for the
// platform API calls. Outreach platforms rate-limit aggressively, so
// 429 responses honor Retry-After before the backoff schedule kicks in.
package httpretry

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient retries transient failures with exponential backoff and
// full jitter. Client errors (4xx other than 429) return immediately.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient creates a RetryClient over the given HTTPDoer.
// A nil client gets a default http.Client with a 30s timeout;
// maxRetries <= 0 defaults to 3.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the request, retrying on 429/5xx and on network errors.
// The final attempt's response is returned as-is so callers can read
// the status and body. Context cancellation is never retried.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			if attempt == rc.maxRetries {
				break
			}
			if werr := rc.wait(req, rc.backoff(attempt+1)); werr != nil {
				return nil, werr
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain so the underlying connection can be reused
		delay := retryAfter(resp, rc.backoff(attempt+1), rc.maxDelay)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)

		log.Printf("httpretry: attempt %d/%d for %s %s%s returned %d, waiting %s",
			attempt+1, rc.maxRetries+1, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, delay)

		if err := rc.rewindBody(req); err != nil {
			return nil, err
		}
		if werr := rc.wait(req, delay); werr != nil {
			return nil, werr
		}
	}

	return nil, lastErr
}

// wait sleeps for the delay unless the request context ends first.
func (rc *RetryClient) wait(req *http.Request, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

func (rc *RetryClient) rewindBody(req *http.Request) error {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("httpretry: failed to reset request body: %w", err)
	}
	req.Body = body
	return nil
}

// backoff returns the jittered delay for the given attempt number,
// random in (0, min(maxDelay, baseDelay * 2^(attempt-1))] with a 100ms
// floor so a zero roll cannot busy-loop.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	exp := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if exp > float64(rc.maxDelay) {
		exp = float64(rc.maxDelay)
	}
	jittered := time.Duration(rand.Float64() * exp)
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

// retryAfter prefers the server's Retry-After header over the computed
// backoff, capped at maxDelay. Only the delta-seconds form is handled;
// HTTP-date values fall back to the backoff.
func retryAfter(resp *http.Response, fallback, maxDelay time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return fallback
	}
	delay := time.Duration(secs) * time.Second
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func retryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
