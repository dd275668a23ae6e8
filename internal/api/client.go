// Package api is the client for the dashboard's backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/youtube-dashboard-go/internal/storage"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// AccessTokenKey is the storage key holding the raw bearer token.
const AccessTokenKey = "access_token"

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func(ctx context.Context) string

// StorageTokenSource reads the token from persisted storage on every request,
// so a logout takes effect for the very next call.
func StorageTokenSource(s storage.Storage) TokenSource {
	return func(ctx context.Context) string {
		var token string
		found, err := s.Get(ctx, AccessTokenKey, &token)
		if err != nil || !found {
			return ""
		}
		return token
	}
}

type operation struct {
	name           string
	defaultMessage string
	// opaque responses may be empty or a non-object; only an object body is decoded.
	opaque bool
}

func (o operation) retryMessage() string {
	return o.defaultMessage + ". Please try again."
}

var (
	opLogin           = operation{name: "login", defaultMessage: "Login failed"}
	opSignup          = operation{name: "signup", defaultMessage: "Signup failed"}
	opProfile         = operation{name: "profile", defaultMessage: "Failed to get user data"}
	opYouTubeAuth     = operation{name: "youtube_auth", defaultMessage: "Failed to get YouTube auth URL"}
	opYouTubeCallback = operation{name: "youtube_callback", defaultMessage: "YouTube authorization failed", opaque: true}
	opChannels        = operation{name: "channels", defaultMessage: "Failed to get channels"}
	opChannelStats    = operation{name: "channel_stats", defaultMessage: "Failed to get channel stats"}
	opFetchVideos     = operation{name: "fetch_videos", defaultMessage: "Failed to fetch videos"}
	opChannelVideos   = operation{name: "channel_videos", defaultMessage: "Failed to get videos"}
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithRateLimit caps outbound requests per second. Non-positive values disable it.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) doRequest(ctx context.Context, op operation, method, path string, query url.Values, reqBody, respBody any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.NewAPIError(op.retryMessage(), op.name, 0, map[string]any{
				"url": reqURL,
			}).WithCause(err)
		}
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return errors.NewAPIError(op.defaultMessage, op.name, 400, map[string]any{
				"url": reqURL,
			}).WithCause(err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return errors.NewAPIError(op.defaultMessage, op.name, 500, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.tokens != nil {
		if token := c.tokens(ctx); token != "" {
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("API request failed",
			zap.String("operation", op.name),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return errors.NewAPIError(op.retryMessage(), op.name, 0, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewAPIError(op.retryMessage(), op.name, resp.StatusCode, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}

	c.logger.Debug("API request completed",
		zap.String("operation", op.name),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewAPIError(
			serverMessage(bodyBytes, op.defaultMessage),
			op.name,
			resp.StatusCode,
			map[string]any{
				"url":  reqURL,
				"body": string(bodyBytes),
			},
		)
	}

	trimmed := bytes.TrimSpace(bodyBytes)
	isObject := len(trimmed) > 0 && trimmed[0] == '{'
	if isObject {
		var envelope successEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return errors.NewAPIError(op.defaultMessage, op.name, resp.StatusCode, map[string]any{
				"url": reqURL,
			}).WithCause(err)
		}
		if envelope.Success != nil && !*envelope.Success {
			return errors.NewAPIError(serverMessage(bodyBytes, op.defaultMessage), op.name, resp.StatusCode, map[string]any{
				"url": reqURL,
			})
		}
	}

	if op.opaque && !isObject {
		return nil
	}
	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return errors.NewAPIError(op.defaultMessage, op.name, resp.StatusCode, map[string]any{
				"url": reqURL,
			}).WithCause(err)
		}
	}

	return nil
}

// serverMessage prefers the message the backend supplied over fallback.
func serverMessage(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(eb.Message); msg != "" {
		return msg
	}
	if detail, ok := eb.Detail.(string); ok && strings.TrimSpace(detail) != "" {
		return strings.TrimSpace(detail)
	}
	if msg := strings.TrimSpace(eb.Error); msg != "" {
		return msg
	}
	return fallback
}
