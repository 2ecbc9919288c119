package integrations

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/httputil"
	"github.com/matzehuels/peerguard/pkg/observability"
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 512

// Client provides shared HTTP functionality for registry API clients.
// It handles caching, retry logic, and common request headers.
type Client struct {
	http    *http.Client
	cache   *httputil.Cache
	headers map[string]string

	// Attempts is the total number of tries per request, including the first.
	Attempts int
	// Backoff returns the wait after a failed attempt.
	Backoff httputil.Backoff
	// Offline refuses every network request with OFFLINE_CACHE_MISS; only
	// documents already in the cache are served.
	Offline bool
}

// NewClient creates a Client with the given cache and default headers.
// Headers are applied to all requests made through this client.
// Either argument may be nil.
func NewClient(cache *httputil.Cache, headers map[string]string) *Client {
	return &Client{
		http:     NewHTTPClient(),
		cache:    cache,
		headers:  headers,
		Attempts: httputil.DefaultAttempts,
		Backoff:  httputil.Linear(httputil.DefaultStep),
	}
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(_ context.Context, key string, refresh bool, v any, fetch func() error) error {
	if c.cache != nil && !refresh {
		if ok, _ := c.cache.Get(key, v); ok {
			return nil
		}
	}
	if err := fetch(); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Set(key, v)
	}
	return nil
}

// Fetch GETs rawURL and JSON-decodes the body into v, retrying transient
// failures (429, 5xx, network errors, per-attempt timeouts) with the client's
// backoff. Each attempt gets its own timeout; zero means [DefaultTimeout].
//
// A 404 yields an error matching [ErrNotFound]. Every other failure is an
// [errors.ErrCodeRegistry] error whose chain carries the cause and the last
// observed status.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration, v any) error {
	if c.Offline {
		return errors.New(errors.ErrCodeOfflineMiss, "offline: %s is not cached", rawURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := max(c.Attempts, 1)
	backoff := c.Backoff
	if backoff == nil {
		backoff = httputil.Linear(httputil.DefaultStep)
	}

	err := httputil.Retry(ctx, attempts, backoff, func(int) error {
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := c.GetWithHeaders(actx, rawURL, headers, v)
		if err != nil && ctx.Err() == nil && stderrors.Is(actx.Err(), context.DeadlineExceeded) {
			return httputil.Retryable(errors.Wrap(errors.ErrCodeTimeout, err, "no response within %s", timeout))
		}
		return err
	})
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, ErrNotFound):
		return err
	case httputil.IsRetryable(err):
		return errors.Wrap(errors.ErrCodeRegistry, err, "GET %s failed after %d attempts", rawURL, attempts)
	case ctx.Err() != nil:
		return err
	default:
		return errors.Wrap(errors.ErrCodeRegistry, err, "GET %s", rawURL)
	}
}

// Get performs a single HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs a single HTTP GET with additional headers merged
// with defaults. Request-specific headers override client defaults for the
// same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if ctx.Err() != nil {
			return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		return errors.Wrap(errors.ErrCodeRegistry, err, "decode %s", url)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := hostPath(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	msg := http.StatusText(code)
	if b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); len(b) > 0 {
		msg = strings.TrimSpace(string(b))
	}

	switch {
	case code == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeNotFound, ErrNotFound, "status 404").WithStatus(code)
	case code == http.StatusUnauthorized:
		return errors.New(errors.ErrCodeUnauthorized, "status %d: %s", code, msg).WithStatus(code)
	case code == http.StatusForbidden:
		return errors.New(errors.ErrCodeForbidden, "status %d: %s", code, msg).WithStatus(code)
	case code == http.StatusTooManyRequests:
		return httputil.Retryable(errors.New(errors.ErrCodeRateLimited, "status %d: %s", code, msg).WithStatus(code))
	case code >= 500:
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, ErrNetwork, "status %d: %s", code, msg).WithStatus(code))
	default:
		return errors.New(errors.ErrCodeRegistry, "status %d: %s", code, msg).WithStatus(code)
	}
}

func hostPath(u *url.URL) (string, string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.Path
}
