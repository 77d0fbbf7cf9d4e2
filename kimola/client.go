// Package kimola is a client for the Kimola API (https://api.kimola.com/v1).
//
// A Client exposes typed resource services:
//
//   - Presets: catalog of pretrained models (list, get by key, labels, predictions)
//   - Queries: query consumption history and aggregated statistics
//   - Subscription: current or historical subscription usage
//
// Dates are sent as UTC. Pagination defaults to pageIndex=0 and pageSize=10.
package kimola

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.kimola.com/v1"

	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "kimola-go/1.0"
)

// RequestInfo describes a completed API call. StatusCode is zero when the
// request failed before a response arrived.
type RequestInfo struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Options configures a Client.
type Options struct {
	// APIKey is required.
	APIKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient is used as the base transport when set. The Client does not
	// close an HTTPClient it did not create.
	HTTPClient *http.Client
	// Timeout bounds each call when HTTPClient is nil. Defaults to 60s.
	// With a custom HTTPClient its Timeout field is used instead.
	Timeout time.Duration
	// UserAgent overrides the User-Agent header.
	UserAgent string
	// RequestHook, if set, is called after every API call.
	RequestHook func(RequestInfo)
}

// Client talks to the Kimola API. It is safe for concurrent use.
type Client struct {
	Presets      *PresetsService
	Queries      *QueriesService
	Subscription *SubscriptionService

	baseURL   *url.URL
	http      *http.Client
	ownsHTTP  bool
	timeout   time.Duration
	userAgent string
	hook      func(RequestInfo)

	mu     sync.RWMutex
	closed bool
}

// New constructs a Client. It returns ErrMissingAPIKey when opts.APIKey is blank.
func New(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	rawBase := strings.TrimSpace(opts.BaseURL)
	if rawBase == "" {
		rawBase = DefaultBaseURL
	}
	base, err := url.Parse(appendSlash(rawBase))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", rawBase)
	}

	ownsHTTP := opts.HTTPClient == nil
	var baseTransport http.RoundTripper = http.DefaultTransport
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if !ownsHTTP {
		if opts.HTTPClient.Transport != nil {
			baseTransport = opts.HTTPClient.Transport
		}
		timeout = opts.HTTPClient.Timeout
	} else {
		baseTransport = http.DefaultTransport.(*http.Transport).Clone()
	}

	// Timeout stays zero: oauth2.Transport has no working CancelRequest, so
	// do applies the deadline to the request context instead.
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"}),
			Base:   baseTransport,
		},
	}
	if !ownsHTTP {
		httpClient.CheckRedirect = opts.HTTPClient.CheckRedirect
		httpClient.Jar = opts.HTTPClient.Jar
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		baseURL:   base,
		http:      httpClient,
		ownsHTTP:  ownsHTTP,
		timeout:   timeout,
		userAgent: userAgent,
		hook:      opts.RequestHook,
	}
	c.Presets = &PresetsService{client: c}
	c.Queries = &QueriesService{client: c}
	c.Subscription = &SubscriptionService{client: c}
	return c, nil
}

// BaseURL returns the normalized API root, always ending in a slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections held by an internally created HTTP client.
// It is safe to call more than once. Calls made after Close return ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// do sends a request relative to the base URL and decodes a JSON response into out.
// A nil body sends no content. When allowNull is false an empty or null
// response body yields ErrEmptyResponse.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, allowNull bool) (err error) {
	if c.isClosed() {
		return ErrClosed
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build request url: %w", err)
	}
	target := c.baseURL.ResolveReference(ref)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	status := 0
	if c.hook != nil {
		defer func() {
			c.hook(RequestInfo{
				Method:     method,
				Path:       strings.SplitN(path, "?", 2)[0],
				StatusCode: status,
				Duration:   time.Since(start),
				Err:        err,
			})
		}()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("kimola request timeout: %w", err)
		}
		return fmt.Errorf("kimola request: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if readErr != nil {
			raw = nil
		}
		return newAPIError(resp.StatusCode, string(raw))
	}
	if readErr != nil {
		return fmt.Errorf("read response: %w", readErr)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if allowNull {
			return nil
		}
		return ErrEmptyResponse
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func appendSlash(s string) string {
	return strings.TrimRight(s, "/") + "/"
}
