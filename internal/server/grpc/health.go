package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/and161185/rollbook/internal/store"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "rollbook"

// HealthWatcher mirrors store reachability into a health server.
type HealthWatcher struct {
	hs      *health.Server
	s       store.Store
	log     *zap.Logger
	timeout time.Duration
}

// NewHealthWatcher constructs a watcher for s.
func NewHealthWatcher(hs *health.Server, s store.Store, log *zap.Logger) *HealthWatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthWatcher{hs: hs, s: s, log: log, timeout: 2 * time.Second}
}

// Check pings the store once and updates the serving status.
func (w *HealthWatcher) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := store.Ping(ctx, w.s); err != nil {
		w.log.Warn("store ping failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	w.hs.SetServingStatus("", st)
	w.hs.SetServingStatus(ServiceName, st)
	return st
}

// Run checks every interval until ctx is done, then marks everything NOT_SERVING.
func (w *HealthWatcher) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.hs.Shutdown()
			return
		case <-t.C:
			w.Check(ctx)
		}
	}
}
