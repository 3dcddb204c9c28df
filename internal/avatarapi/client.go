// Package avatarapi is a client for the third-party avatar generation API.
// The API is treated as opaque: photos become avatar ids, scripts become
// videos that are processed asynchronously.
package avatarapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 60 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 30 * time.Second

	// HeaderAPIKey carries the static API key.
	HeaderAPIKey = "X-Api-Key"

	maxResponseBytes = 1 << 20
)

// NewHTTPClient creates an HTTP client configured for avatar API calls.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// RequestsPerSecond caps outgoing calls. Zero or less disables the limit.
	RequestsPerSecond float64
	MaxAttempts       int
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client calls the avatar API.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     func(attempt int) time.Duration
	logger      *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		http:        httpClient,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		backoff:     nextRetryDelay,
		logger:      logger.With("component", "avatarapi"),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// VideoRequest describes a text-to-video job.
type VideoRequest struct {
	AvatarID string `json:"avatar_id"`
	VoiceID  string `json:"voice_id,omitempty"`
	Script   string `json:"script"`
	Title    string `json:"title,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Video processing states reported by VideoStatus.
const (
	VideoPending    = "pending"
	VideoProcessing = "processing"
	VideoCompleted  = "completed"
	VideoFailed     = "failed"
)

// VideoStatus is the processing state of a generated video.
type VideoStatus struct {
	VideoID      string  `json:"video_id"`
	Status       string  `json:"status"`
	VideoURL     string  `json:"video_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Done reports whether processing has finished, successfully or not.
func (s *VideoStatus) Done() bool {
	return s.Status == VideoCompleted || s.Status == VideoFailed
}

// envelope is the API's response wrapper.
type envelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Data json.RawMessage `json:"data"`
}

// UploadPhoto registers the photo at imageURL as a new avatar and returns
// its remote id.
func (c *Client) UploadPhoto(ctx context.Context, imageURL, name string) (string, error) {
	var out struct {
		AvatarID string `json:"avatar_id"`
	}
	body := map[string]string{"image_url": imageURL, "name": name}
	if err := c.do(ctx, http.MethodPost, "/v2/photo_avatars", nil, body, &out, false); err != nil {
		return "", err
	}
	if out.AvatarID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "response missing avatar_id"}
	}
	return out.AvatarID, nil
}

// GenerateVideo submits a video job and returns the remote video id.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	var out struct {
		VideoID string `json:"video_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/video/generate", nil, req, &out, false); err != nil {
		return "", err
	}
	if out.VideoID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "response missing video_id"}
	}
	return out.VideoID, nil
}

// VideoStatus returns the processing state of videoID.
func (c *Client) VideoStatus(ctx context.Context, videoID string) (*VideoStatus, error) {
	var out VideoStatus
	query := url.Values{"video_id": {videoID}}
	if err := c.do(ctx, http.MethodGet, "/v1/video_status.get", query, nil, &out, true); err != nil {
		return nil, err
	}
	if out.VideoID == "" {
		out.VideoID = videoID
	}
	return &out, nil
}

// do sends one logical request. Idempotent requests are retried on
// transport failures, 429 and 5xx. Others create paid jobs upstream and are
// retried only on 429, which the API returns without accepting the job.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, idempotent bool) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			c.logger.Warn("avatar_api_retry", "path", path, "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.send(ctx, method, endpoint, payload, out)
		if lastErr == nil || !shouldRetry(lastErr, idempotent) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Message = env.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if decodeErr != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed response body"}
	}
	if env.Error != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed response data"}
	}
	return nil
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
