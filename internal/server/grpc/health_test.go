package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/rollbook/internal/store"
)

type pingStore struct {
	*store.Memory
	err error
}

func (p *pingStore) Ping(context.Context) error { return p.err }

func servingStatus(t *testing.T, hs *health.Server, svc string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
	if err != nil {
		t.Fatalf("Check(%q): %v", svc, err)
	}
	return resp.GetStatus()
}

func TestHealthWatcher_Check(t *testing.T) {
	t.Parallel()
	hs := health.NewServer()
	s := &pingStore{Memory: store.NewMemory(0)}
	w := NewHealthWatcher(hs, s, zaptest.NewLogger(t))

	if got := w.Check(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("want SERVING, got %v", got)
	}
	if got := servingStatus(t, hs, ServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("service status: %v", got)
	}

	s.err = store.Wrap("redis ping", errors.New("connection refused"))
	w.Check(context.Background())
	for _, svc := range []string{"", ServiceName} {
		if got := servingStatus(t, hs, svc); got != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Fatalf("%q: want NOT_SERVING, got %v", svc, got)
		}
	}
}

func TestHealthWatcher_LocalStoreAlwaysServing(t *testing.T) {
	t.Parallel()
	hs := health.NewServer()
	w := NewHealthWatcher(hs, store.NewMemory(0), nil)
	if got := w.Check(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("want SERVING, got %v", got)
	}
}

func TestHealthWatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	hs := health.NewServer()
	w := NewHealthWatcher(hs, store.NewMemory(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if got := servingStatus(t, hs, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("want NOT_SERVING after shutdown, got %v", got)
	}
}

func TestNew_ServesHealthOverTheWire(t *testing.T) {
	t.Parallel()
	lis := bufconn.Listen(1 << 20)
	hs := health.NewServer()
	NewHealthWatcher(hs, store.NewMemory(0), nil).Check(context.Background())

	srv := New(zaptest.NewLogger(t), hs, true)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("want SERVING, got %v", resp.GetStatus())
	}
}
