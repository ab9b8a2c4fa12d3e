package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/auth"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/ratelimit"
)

const maxErrorBodyBytes int64 = 1 << 20

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Policy     RetryPolicy
	Timeout    time.Duration
	Limiter    ratelimit.Limiter
	Logger     *slog.Logger
	HTTPClient *http.Client
	UserAgent  string
}

// Client issues authenticated requests one at a time with bounded retry.
// The credential is attached to every request and never refreshed.
type Client struct {
	retrying   *retryablehttp.Client
	credential auth.Credential
	policy     RetryPolicy
	limiter    ratelimit.Limiter
	userAgent  string
}

func New(credential auth.Credential, opts Options) *Client {
	policy := opts.Policy
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	if policy.RetryStatuses == nil {
		policy.RetryStatuses = DefaultRetryPolicy().RetryStatuses
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = policy.MaxAttempts - 1
	rc.RetryWaitMin = policy.BackoffFactor
	rc.RetryWaitMax = policy.MaxBackoff
	rc.CheckRetry = policy.checkRetry
	rc.Backoff = policy.backoff
	rc.ErrorHandler = giveUp
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "asc-desc-copy"
	}

	return &Client{
		retrying:   rc,
		credential: credential,
		policy:     policy,
		limiter:    limiter,
		userAgent:  userAgent,
	}
}

// Policy returns the retry policy the client was built with.
func (c *Client) Policy() RetryPolicy {
	return c.policy
}

func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil)
}

func (c *Client) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, url, body)
}

func (c *Client) Patch(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPatch, url, body)
}

// Do sends the request and returns the response on a 2xx status. The caller
// owns the response body. Non-2xx statuses come back as
// *errors.TransientHTTPError or *errors.PermanentHTTPError.
func (c *Client) Do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, url, err)
		}
		payload = encoded
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var rawBody any
	if payload != nil {
		rawBody = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, rawBody)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	req.Header.Set("Authorization", c.credential.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.retrying.Do(req)
	if err != nil {
		var transient *app_errors.TransientHTTPError
		if errors.As(err, &transient) {
			transient.Method = method
			transient.URL = url
			return nil, transient
		}
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &app_errors.PermanentHTTPError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       readAndClose(resp.Body),
		}
	}

	return resp, nil
}

// giveUp runs once the retry loop stops without a usable response.
func giveUp(resp *http.Response, err error, numTries int) (*http.Response, error) {
	transient := &app_errors.TransientHTTPError{
		Attempts: numTries,
		Err:      err,
	}
	if resp != nil {
		transient.StatusCode = resp.StatusCode
		transient.Body = readAndClose(resp.Body)
	}
	return nil, transient
}

func readAndClose(body io.ReadCloser) []byte {
	if body == nil {
		return nil
	}
	defer body.Close()
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	return data
}
