// Package api is the HTTP transport to the Langsys translation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.langsys.dev/api"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxLoggedBody caps response bodies copied into error logs.
const maxLoggedBody = 1000

// Config identifies the project and endpoint.
type Config struct {
	BaseURL           string
	APIKey            string
	ProjectID         string
	Timeout           time.Duration
	RequestsPerMinute int // Zero disables client-side throttling
}

// Client calls the translation service.
type Client struct {
	baseURL   string
	apiKey    string
	projectID string
	http      *http.Client
	limiter   *langsys.RateLimiter
	retry     langsys.RetryConfig
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetryConfig sets the backoff used for retryable failures.
func WithRetryConfig(cfg langsys.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithRateLimiter throttles outgoing requests.
func WithRateLimiter(l *langsys.RateLimiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for cfg.
func New(cfg Config, opts ...Option) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		http:      &http.Client{Timeout: timeout},
		retry:     langsys.DefaultRetryConfig(),
		logger:    zap.NewNop(),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = langsys.NewRateLimiter(langsys.RateLimitConfig{RequestsPerMinute: cfg.RequestsPerMinute})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProjectID returns the configured project.
func (c *Client) ProjectID() string {
	return c.projectID
}

// errorBody is the error envelope of the service.
type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func (b errorBody) text(fallback string) string {
	switch {
	case b.Error != "":
		return b.Error
	case b.Message != "":
		return b.Message
	default:
		return fallback
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &langsys.APIError{Message: "encoding request", Cause: err}
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

// do sends one request with retries and decodes a successful body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	retry := c.retry
	retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Info("retrying api request",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	_, err := langsys.WithRetry(ctx, retry, func() (struct{}, error) {
		return struct{}{}, c.attempt(ctx, method, endpoint, payload, out)
	})
	return err
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &langsys.APIError{Message: "rate limit wait cancelled", Cause: err}
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &langsys.APIError{Message: "building request", Cause: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", langsys.UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("X-Authorization", c.apiKey)
	}

	log := c.logger.With(
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.String("request_id", requestID),
	)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("api request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return &langsys.APIError{Message: "sending request", Cause: err, Retryable: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &langsys.APIError{Message: "reading response", Cause: err, StatusCode: resp.StatusCode, Retryable: true}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn("api request error",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("response_body", truncate(data, maxLoggedBody)),
		)
		err := statusError(resp.StatusCode, data)
		if wait := retryAfter(resp.Header.Get("Retry-After"), time.Now()); wait > 0 {
			var apiErr *langsys.APIError
			if errors.As(err, &apiErr) {
				apiErr.RetryAfter = wait
			}
			if c.limiter != nil {
				c.limiter.Pause(wait)
			}
		}
		return err
	}
	log.Debug("api request completed", zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &langsys.APIError{Message: "decoding response", Cause: err, StatusCode: resp.StatusCode}
	}
	return nil
}

// statusError maps an error status to the typed errors of the root package.
func statusError(status int, data []byte) error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)

	switch {
	case status == http.StatusUnauthorized:
		return &langsys.AuthenticationError{Message: eb.text("unauthorized")}
	case status == http.StatusUnprocessableEntity:
		return &langsys.ValidationError{Message: eb.text("validation failed"), Errors: eb.Errors}
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &langsys.APIError{Message: eb.text(http.StatusText(status)), StatusCode: status, Retryable: true}
	default:
		return &langsys.APIError{Message: eb.text(http.StatusText(status)), StatusCode: status}
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		return at.Sub(now)
	}
	return 0
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return fmt.Sprintf("%s... (truncated)", data[:n])
}
