// Package backend implements the client for the Travy REST backend.
// The backend is an opaque collaborator: this package only knows its generic
// verbs, its error shape and the handful of endpoints the admin console reads.
package backend

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
	"time"

	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/circuitbreaker"
	"github.com/travy/admin-hub/pkg/logger"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3001/api"

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RequestObserver receives one call per completed HTTP exchange.
// status is 0 when no response was received.
type RequestObserver interface {
	BackendRequest(method string, status int, elapsed time.Duration)
}

// ClientConfig contains configuration for the backend client.
type ClientConfig struct {
	// BaseURL is prefixed to every path.
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Breaker fails requests fast while the backend is down. Optional.
	Breaker *circuitbreaker.CircuitBreaker

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client

	// Logger for structured logging.
	Logger *zap.Logger

	// Observer for metrics. Optional.
	Observer RequestObserver
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

// BreakerConfig tunes the backend breaker.
type BreakerConfig struct {
	FailureThreshold int
	Timeout          time.Duration
	OnStateChange    func(name string, from, to circuitbreaker.State)
}

// DefaultBreakerConfig opens after 5 consecutive failures for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Timeout: 30 * time.Second}
}

// NewBreaker returns the breaker for the backend. Client errors (4xx)
// are the backend answering correctly and do not count as failures.
func NewBreaker(cfg BreakerConfig) *circuitbreaker.CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return circuitbreaker.New(
		"backend",
		circuitbreaker.WithFailureThreshold(cfg.FailureThreshold),
		circuitbreaker.WithSuccessThreshold(2),
		circuitbreaker.WithTimeout(cfg.Timeout),
		circuitbreaker.WithOnStateChange(cfg.OnStateChange),
		circuitbreaker.WithIsFailure(func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.IsClientError()
			}
			return true
		}),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements error.
func (e *APIError) Error() string {
	return e.Message
}

// Display implements shared.Displayable.
func (e *APIError) Display() string {
	return e.Message
}

// IsClientError reports a 4xx status.
func (e *APIError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// Unwrap maps the status onto the shared error kinds.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return shared.ErrForbidden
	case e.Status == http.StatusNotFound:
		return shared.ErrNotFound
	case e.Status == http.StatusConflict:
		return shared.ErrAlreadyExists
	case e.Status == http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return shared.ErrValidation
	default:
		return shared.ErrExternalService
	}
}

func newAPIError(status int, body []byte) *APIError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return &APIError{Status: status, Message: eb.Message}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}
}

// ErrInvalidLoginResponse is returned when a login answer carries no token.
// Status 0 marks an answer that arrived but could not be used.
var ErrInvalidLoginResponse = &APIError{Message: "Invalid response from server"}

// ErrUnexpectedContent is returned when a typed helper receives a non-JSON body.
var ErrUnexpectedContent = shared.NewDomainError("backend", "Decode", shared.ErrExternalService, "unexpected non-JSON response")

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE
// ══════════════════════════════════════════════════════════════════════════════

// Response is a successful answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the content type announces JSON.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

// IsEmpty reports an empty body.
func (r *Response) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// Value returns the decoded JSON value, the raw text, or nil for an empty body.
func (r *Response) Value() (any, error) {
	if r.IsJSON() {
		if r.IsEmpty() {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(r.Body, &v); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return v, nil
	}
	if r.IsEmpty() {
		return nil, nil
	}
	return string(r.Body), nil
}

// Decode unmarshals a JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r.IsEmpty() {
		return nil
	}
	if !r.IsJSON() {
		return ErrUnexpectedContent
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return shared.WrapError("backend", "Decode", shared.ErrExternalService, "malformed JSON response", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the backend REST client. It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
	token      string
}

// NewClient creates a new backend client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     config.Logger.With(logger.Component("backend")),
	}
}

// WithToken returns a client that sends token as a bearer credential.
// The copy shares the transport and the breaker.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Get performs GET path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs POST path with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs PUT path with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Patch performs PATCH path with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete performs DELETE path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do performs one request through the breaker. It never retries.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	if c.config.Breaker == nil {
		return c.doSingleRequest(ctx, method, path, body)
	}

	var resp *Response
	err := c.config.Breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.doSingleRequest(ctx, method, path, body)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil, shared.WrapError("backend", method+" "+path, shared.ErrServiceUnavailable, "backend unavailable", err)
	}
	return resp, err
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body any) (*Response, error) {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		kind := shared.ErrExternalService
		if ctx.Err() != nil {
			kind = shared.ErrCanceled
		}
		c.logger.Debug("backend request failed",
			zap.String("method", method),
			logger.Path(path),
			logger.Latency(time.Since(start)),
			zap.Error(err),
		)
		return nil, shared.WrapError("backend", method+" "+path, kind, "backend request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.observe(method, resp.StatusCode, start)

	c.logger.Debug("backend request",
		zap.String("method", method),
		logger.Path(path),
		logger.HTTPStatus(resp.StatusCode),
		logger.Latency(time.Since(start)),
		logger.Fingerprint(session.Fingerprint(c.token)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.config.Observer != nil {
		c.config.Observer.BackendRequest(method, status, time.Since(start))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TYPED ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// getJSON fetches path and decodes it into T. A null or empty body yields the zero T.
func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	resp, err := c.Get(ctx, path)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// ListUsers fetches the full user store.
func (c *Client) ListUsers(ctx context.Context) ([]*directory.User, error) {
	dtos, err := getJSON[[]UserDTO](ctx, c, "/users")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return UsersFromDTO(dtos)
}

// BlockUser asks the backend to block a user.
func (c *Client) BlockUser(ctx context.Context, id string) error {
	_, err := c.Put(ctx, "/users/"+url.PathEscape(id)+"/block", nil)
	return err
}

// UnblockUser asks the backend to unblock a user.
func (c *Client) UnblockUser(ctx context.Context, id string) error {
	_, err := c.Put(ctx, "/users/"+url.PathEscape(id)+"/unblock", nil)
	return err
}

// ListInfluencers fetches the full influencer store.
func (c *Client) ListInfluencers(ctx context.Context) ([]*directory.Influencer, error) {
	dtos, err := getJSON[[]InfluencerDTO](ctx, c, "/influencers")
	if err != nil {
		return nil, fmt.Errorf("list influencers: %w", err)
	}
	return InfluencersFromDTO(dtos)
}

// DeleteInfluencer asks the backend to delete an influencer.
func (c *Client) DeleteInfluencer(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/influencers/"+url.PathEscape(id))
	return err
}

// TopInfluencers fetches the backend's own top list for the admin dashboard.
func (c *Client) TopInfluencers(ctx context.Context) ([]*directory.Influencer, error) {
	dtos, err := getJSON[[]InfluencerDTO](ctx, c, "/influencers/top")
	if err != nil {
		return nil, fmt.Errorf("top influencers: %w", err)
	}
	return InfluencersFromDTO(dtos)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	resp, err := c.Post(ctx, "/auth/login", req)
	if err != nil {
		return "", err
	}
	if !resp.IsJSON() {
		return "", ErrInvalidLoginResponse
	}
	var lr LoginResponse
	if err := resp.Decode(&lr); err != nil || lr.Token == "" {
		return "", ErrInvalidLoginResponse
	}
	return lr.Token, nil
}

// Authenticate is Login for callers that do not build a LoginRequest.
func (c *Client) Authenticate(ctx context.Context, email, password, role string) (string, error) {
	return c.Login(ctx, LoginRequest{Email: email, Password: password, Role: role})
}

// InfluencerProfile fetches the signed-in influencer's own profile.
// A null answer yields an empty profile.
func (c *Client) InfluencerProfile(ctx context.Context) (directory.Profile, error) {
	dto, err := getJSON[InfluencerDTO](ctx, c, "/influencer/me")
	if err != nil {
		return directory.Profile{}, fmt.Errorf("influencer profile: %w", err)
	}
	return ProfileFromDTO(dto), nil
}

// ReferredUsers fetches the users referred by the signed-in influencer.
func (c *Client) ReferredUsers(ctx context.Context) ([]*directory.User, error) {
	dtos, err := getJSON[[]UserDTO](ctx, c, "/influencer/referred-users")
	if err != nil {
		return nil, fmt.Errorf("referred users: %w", err)
	}
	return UsersFromDTO(dtos)
}
