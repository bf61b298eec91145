package contact

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/rollbook/internal/errs"
)

// DefaultDelay is the latency of the simulated endpoint.
const DefaultDelay = 1500 * time.Millisecond

// Simulated accepts every form after Delay.
type Simulated struct {
	Delay time.Duration
}

func (s Simulated) Submit(ctx context.Context, _ Form) (Result, error) {
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("simulated submit: %w: %w", errs.ErrTransport, ctx.Err())
	case <-t.C:
		return Result{Success: true, Message: MsgReceived}, nil
	}
}
