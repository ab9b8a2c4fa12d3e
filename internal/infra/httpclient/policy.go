package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RetryPolicy is fixed at client construction and never mutated afterwards.
type RetryPolicy struct {
	// MaxAttempts counts the first request, so 3 means at most two retries.
	MaxAttempts   int
	BackoffFactor time.Duration
	MaxBackoff    time.Duration
	RetryStatuses map[int]struct{}
}

// DefaultRetryPolicy allows 3 attempts with a 1s linear backoff on
// 429, 500, 502, 503 and 504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffFactor: time.Second,
		MaxBackoff:    30 * time.Second,
		RetryStatuses: statusSet(
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		),
	}
}

func statusSet(codes ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Retryable reports whether a response status is in the retry-eligible set.
func (p RetryPolicy) Retryable(status int) bool {
	_, ok := p.RetryStatuses[status]
	return ok
}

func (p RetryPolicy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return p.Retryable(resp.StatusCode), nil
}

// Backoff returns the wait before the retry that follows attempt (zero
// based). It grows linearly with the factor and honors Retry-After, both
// capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int, resp *http.Response) time.Duration {
	wait := p.BackoffFactor * time.Duration(attempt+1)
	if after, ok := retryAfter(resp); ok && after > wait {
		wait = after
	}
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	return wait
}

func (p RetryPolicy) backoff(_, _ time.Duration, attempt int, resp *http.Response) time.Duration {
	return p.Backoff(attempt, resp)
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		return time.Until(at), true
	}
	return 0, false
}
