// Package gateway is the single chokepoint for every REST call the console makes.
// It attaches the bearer token, signals activity, unwraps response envelopes and
// replays a request once after a 401 when its auth failure handler supplies a
// fresh token.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"mergealert/internal/metrics"
	"mergealert/services/notify"
	"mergealert/utils"
)

const (
	DefaultBaseURL = "http://localhost:1688/api/v1"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

// TokenSource supplies the current access token; "" means anonymous.
type TokenSource interface {
	AccessToken() string
}

// AuthFailure describes a 401 seen by the gateway. Retried is true when the
// request had already been replayed once with a refreshed token. Token is the
// access token the failing attempt carried.
type AuthFailure struct {
	Method  string
	Path    string
	Token   string
	Retried bool
	Err     error
}

// AuthFailureHandler recovers from a 401 by returning a fresh access token.
// Returning an error (or being called with Retried set) ends the request; the
// handler owns any teardown and redirect.
type AuthFailureHandler func(ctx context.Context, failure AuthFailure) (string, error)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  rate.Limit
	Burst      int
	Tokens     TokenSource
	Notifier   notify.Notifier
	Metrics    metrics.Recorder
	HTTPClient *http.Client
}

// Client issues authenticated REST calls.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	notifier   notify.Notifier
	metrics    metrics.Recorder
	limiter    *rate.Limiter
	log        *slog.Logger

	mu            sync.RWMutex
	onActivity    []func(context.Context)
	onAuthFailure AuthFailureHandler
	onSetup       []func()
}

// New builds a client. Tokens is required; every other option has a default.
func New(opts Options) (*Client, error) {
	if opts.Tokens == nil {
		return nil, errors.New("gateway: token source required")
	}
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", baseURL.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	limit := opts.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	var recorder metrics.Recorder = (*metrics.Metrics)(nil)
	if opts.Metrics != nil {
		recorder = opts.Metrics
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     opts.Tokens,
		notifier:   notifier,
		metrics:    recorder,
		limiter:    rate.NewLimiter(limit, burst),
		log:        slog.Default().With("component", "gateway"),
	}
	if utils.InsecureRemote(baseURL.String()) {
		c.log.Warn("bearer tokens will be sent over plain http to a public host", "base_url", baseURL.String())
	}
	return c, nil
}

// OnActivity subscribes fn to the activity signal fired before each request is sent.
func (c *Client) OnActivity(fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onActivity = append(c.onActivity, fn)
}

// OnAuthFailure installs the single 401 handler, replacing any previous one.
func (c *Client) OnAuthFailure(fn AuthFailureHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthFailure = fn
}

// OnSetupRequired subscribes fn to 403 responses that report a pending admin setup.
func (c *Client) OnSetupRequired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSetup = append(c.onSetup, fn)
}

// Request describes one call. Body is JSON encoded unless it is an io.Reader,
// in which case it is sent as is with ContentType.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	ContentType string

	// SkipAuthFailure returns a 401 straight to the caller without consulting
	// the auth failure handler. Credential exchanges set it: a 401 there means
	// bad credentials, not an expired session.
	SkipAuthFailure bool

	// Passive requests do not fire the activity signal. Session-neutral
	// calls such as the bootstrap check set it so they cannot keep an idle
	// session alive.
	Passive bool
}

// Get fetches path into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body as JSON to path and decodes the unwrapped response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes the unwrapped response into out (which may be nil).
// Every failure is either notified or, for a 401, left to the auth failure
// handler; the error is always returned to the caller.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	if err := ensureReplayableBody(httpReq); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	if !req.Passive {
		c.fireActivity(ctx)
	}

	var (
		body     []byte
		retried  bool
		override string
		sent     string
	)
	err = retry.Do(
		func() error {
			if err := resetRequestBody(httpReq); err != nil {
				return fmt.Errorf("reset request body: %w", err)
			}
			token := override
			if token == "" {
				token = c.tokens.AccessToken()
			}
			setAuthHeader(httpReq, token)
			sent = token

			var sendErr error
			body, sendErr = c.send(httpReq, req)
			return sendErr
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if req.SkipAuthFailure || !errors.Is(err, ErrUnauthorized) {
				return false
			}
			token, herr := c.handleAuthFailure(ctx, AuthFailure{
				Method:  req.Method,
				Path:    req.Path,
				Token:   sent,
				Retried: retried,
				Err:     err,
			})
			if herr != nil || retried || token == "" {
				return false
			}
			retried = true
			override = token
			c.metrics.IncRetry()
			return true
		}),
	)
	if err != nil {
		c.report(ctx, req, err)
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapEnvelope(body), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.resolve(req.Path, req.Query)

	var (
		reader      io.Reader
		contentType string
	)
	switch b := req.Body.(type) {
	case nil:
	case io.Reader:
		reader = b
		contentType = req.ContentType
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, req.Path, err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs one attempt. 2xx bodies are returned; anything else becomes an *APIError.
func (c *Client) send(httpReq *http.Request, req Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(httpReq.Method, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", httpReq.Method, req.Path, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(httpReq.Method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Method:  httpReq.Method,
			Path:    req.Path,
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", httpReq.Method, req.Path, err)
	}
	return body, nil
}

func (c *Client) handleAuthFailure(ctx context.Context, failure AuthFailure) (string, error) {
	c.mu.RLock()
	handler := c.onAuthFailure
	c.mu.RUnlock()
	if handler == nil {
		return "", failure.Err
	}
	return handler(ctx, failure)
}

// report surfaces a failed request. 401s are the auth failure handler's business.
func (c *Client) report(ctx context.Context, req Request, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		c.log.Debug("request unauthorized", "method", req.Method, "path", req.Path)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		c.log.Warn("request forbidden", "method", req.Method, "path", req.Path, "message", apiErr.Message)
		c.notifier.Error("permission denied: " + apiErr.Message)
		if isSetupRequired(apiErr.Message) {
			c.fireSetupRequired()
		}
	case apiErr != nil:
		c.log.Warn("request failed", "method", req.Method, "path", req.Path, "status", apiErr.Status, "message", apiErr.Message)
		c.notifier.Error(apiErr.Message)
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		c.log.Debug("request cancelled", "method", req.Method, "path", req.Path)
	default:
		c.log.Warn("request failed", "method", req.Method, "path", req.Path, "error", err)
		c.notifier.Error(transportMessage(err))
	}
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		return urlErr.Err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return "request failed"
}

func isSetupRequired(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "setup required") || strings.Contains(m, "setup is required")
}

func (c *Client) fireActivity(ctx context.Context) {
	c.mu.RLock()
	subs := append([]func(context.Context){}, c.onActivity...)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx)
	}
}

func (c *Client) fireSetupRequired() {
	c.mu.RLock()
	subs := append([]func(){}, c.onSetup...)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

func setAuthHeader(req *http.Request, token string) {
	if token == "" {
		req.Header.Del("Authorization")
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// ensureReplayableBody buffers the request body so it can be replayed after a refresh.
func ensureReplayableBody(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}

	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("buffer request body: %w", err)
	}
	_ = req.Body.Close()

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(bodyBytes)), nil
	}
	req.Body, _ = req.GetBody()
	req.ContentLength = int64(len(bodyBytes))
	return nil
}

// resetRequestBody rewinds the body before each attempt.
func resetRequestBody(req *http.Request) error {
	if req == nil || req.GetBody == nil {
		return nil
	}

	bodyCopy, err := req.GetBody()
	if err != nil {
		return err
	}

	req.Body = bodyCopy
	return nil
}
