package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/and161185/rollbook/internal/errs"
)

// HTTP posts forms as JSON to Endpoint and decodes a Result reply.
type HTTP struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTP creates a submitter with a 30s client timeout.
func NewHTTP(endpoint string) *HTTP {
	return &HTTP{Endpoint: endpoint, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (h *HTTP) Submit(ctx context.Context, f Form) (Result, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("contact request: %w: %w", errs.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("contact request failed: %w: %w", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Result{}, fmt.Errorf("contact endpoint error %s: %w: %s", resp.Status, errs.ErrTransport, string(b))
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode contact reply: %w: %w", errs.ErrTransport, err)
	}
	return out, nil
}
