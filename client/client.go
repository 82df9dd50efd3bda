package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/memegate/api"
	"github.com/BaSui01/memegate/llm/image"
)

// Sentinel errors returned by Client and FirstImage.
var (
	ErrUnreachable      = errors.New("Cannot reach the meme backend. Is the server running?")
	ErrNoImage          = errors.New("No image was generated. The provider may have returned text instead.")
	ErrUnexpectedFormat = errors.New("Unexpected response format from image API")
)

const (
	generatePath = "/api/generate-meme"
	healthPath   = "/health"

	defaultErrorMessage = "Failed to generate image"
	maxResponseBytes    = 64 << 20
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Config holds configuration for the gateway client.
type Config struct {
	// BaseURL is the gateway root, e.g. "http://localhost:3001".
	BaseURL string
	// Timeout bounds one request end to end. It must cover a full image generation.
	Timeout time.Duration
	// Headers are added to every request.
	Headers map[string]string
}

// DefaultConfig returns a Config pointing at a local gateway.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:3001",
		Timeout: 90 * time.Second,
		Headers: make(map[string]string),
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to a running memegate server.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client. A nil config means DefaultConfig.
func New(config *Config, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "meme_client"))
	return c
}

// Generate posts one image (raw base64 or a data URL) and a prompt and returns
// the canonical result.
func (c *Client) Generate(ctx context.Context, imageData, prompt string) (*image.Result, error) {
	body, err := json.Marshal(api.GenerateMemeRequest{ImageData: imageData, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, generatePath, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: defaultErrorMessage}
		var errResp api.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && strings.TrimSpace(errResp.Error) != "" {
			apiErr.Message = errResp.Error
		}
		c.logger.Warn("meme generation failed",
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Message),
		)
		return nil, apiErr
	}

	var result image.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	return &result, nil
}

// GenerateImage runs Generate and returns the first image part.
func (c *Client) GenerateImage(ctx context.Context, imageData, prompt string) (*image.InlineData, error) {
	result, err := c.Generate(ctx, imageData, prompt)
	if err != nil {
		return nil, err
	}
	return FirstImage(result)
}

// Health calls GET /health and fails unless the server answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("health check returned status %d", resp.StatusCode)}
	}
	return nil
}

// Fetch returns the bytes of an image part: decoded base64, or downloaded when
// the part carries a URL.
func (c *Client) Fetch(ctx context.Context, in *image.InlineData) ([]byte, error) {
	if in == nil {
		return nil, ErrNoImage
	}
	if in.Source != image.SourceURL {
		return image.DecodeImage(in.Data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.config.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Debug("backend unreachable", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, fmt.Errorf("%w (%v)", ErrUnreachable, err)
	}
	return resp, nil
}

// FirstImage extracts the first image part. It returns ErrUnexpectedFormat
// when the result has no candidate parts at all and ErrNoImage when parts
// exist but none carries image data.
func FirstImage(result *image.Result) (*image.InlineData, error) {
	if result == nil {
		return nil, ErrUnexpectedFormat
	}
	if in, ok := result.FirstImage(); ok {
		return in, nil
	}
	for _, cand := range result.Candidates {
		if len(cand.Content.Parts) > 0 {
			return nil, ErrNoImage
		}
	}
	return nil, ErrUnexpectedFormat
}

// ImageDataURL renders image bytes as a data URL. An empty mimeType is sniffed.
func ImageDataURL(data []byte, mimeType string) string {
	mimeType = image.DetectMimeType(data, mimeType)
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// InlineDataURL renders a base64 image part as a data URL; URL parts are returned as is.
func InlineDataURL(in *image.InlineData) string {
	if in.Source == image.SourceURL {
		return in.Data
	}
	return "data:" + in.MimeType + ";base64," + in.Data
}
