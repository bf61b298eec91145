// Package gemini implements insight.Completer on the Gemini API through the official genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/insight"
)

// ErrNoAPIKey is returned when the client has no credential configured.
var ErrNoAPIKey = errors.New("gemini: api key not configured")

// Client calls Models.GenerateContent. An empty BaseURL uses the SDK default host.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	mu sync.Mutex
	gc *genai.Client
}

var _ insight.Completer = (*Client)(nil)

// New creates a client with the given request timeout. A zero timeout means 30s.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// sdk builds the genai client on first use. A failed build is retried on the next call.
// The build is not tied to the cancellation of the request that triggered it.
func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gc != nil {
		return c.gc, nil
	}
	gc, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:      c.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.HTTP,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.BaseURL},
	})
	if err != nil {
		return nil, err
	}
	c.gc = gc
	return gc, nil
}

// Complete sends a single user turn and returns the concatenated text of the first candidate.
func (c *Client) Complete(ctx context.Context, req insight.Request) (insight.Response, error) {
	if c.APIKey == "" {
		return insight.Response{}, ErrNoAPIKey
	}
	model := req.Model
	if model == "" {
		model = insight.DefaultModel
	}
	gc, err := c.sdk(ctx)
	if err != nil {
		return insight.Response{}, fmt.Errorf("gemini client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Config.Temperature)}
	if req.Config.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = int32(*req.Config.MaxOutputTokens)
	}

	resp, err := gc.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return insight.Response{}, fmt.Errorf("gemini generate: %w: %w", errs.ErrTransport, cerr)
		}
		return insight.Response{}, fmt.Errorf("gemini generate: %w: %w", errs.ErrTransport, err)
	}
	return insight.Response{Text: resp.Text()}, nil
}
