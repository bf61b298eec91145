// Command rollbook-server serves the attendance API over HTTP and gRPC health.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"

	"github.com/and161185/rollbook/internal/config"
	"github.com/and161185/rollbook/internal/contact"
	pkgcrypto "github.com/and161185/rollbook/internal/crypto"
	"github.com/and161185/rollbook/internal/insight"
	"github.com/and161185/rollbook/internal/insight/gemini"
	"github.com/and161185/rollbook/internal/repository/kv"
	grpcserver "github.com/and161185/rollbook/internal/server/grpc"
	httpserver "github.com/and161185/rollbook/internal/server/http"
	"github.com/and161185/rollbook/internal/service"
	"github.com/and161185/rollbook/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, opens the selected store, and serves until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger depends on cfg.Env, so fall back to a plain production logger here
		l, _ := zap.NewProduction()
		l.Fatal("config", zap.Error(err))
	}

	// Flags override the environment
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address")
	flag.StringVar(&cfg.StoreBackend, "backend", cfg.StoreBackend, "store backend: memory|file|redis|postgres")
	certFile := flag.String("tls-cert", "", "TLS certificate for gRPC (PEM)")
	keyFile := flag.String("tls-key", "", "TLS private key for gRPC (PEM)")
	flag.Parse()

	logger := newLogger(cfg)
	if err := cfg.RequireSigningKey(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("grpc", cfg.GRPCAddr),
		zap.String("backend", cfg.StoreBackend),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Services
	authSvc := service.NewAuthService(kv.NewUserRepo(b.store, logger), pkgcrypto.DefaultParams, logger)
	attSvc := service.NewAttendanceService(kv.NewAttendanceRepo(b.store, logger))
	completer := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.CompletionTimeout)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, insights will use fallback text")
	}
	gen := insight.NewGenerator(completer, cfg.GeminiModel, logger, reg)

	var sub contact.Submitter = contact.Simulated{Delay: cfg.ContactDelay}
	if cfg.ContactEndpoint != "" {
		sub = contact.NewHTTP(cfg.ContactEndpoint)
	}

	tokens, err := token.NewIssuer([]byte(cfg.JWTSigningKey), cfg.AccessTTL)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	api := httpserver.New(httpserver.Deps{
		Auth:       authSvc,
		Attendance: attSvc,
		Insights:   gen,
		Contact:    contact.NewService(sub, logger),
		Tokens:     tokens,
		Limiter:    b.limiter,
		Store:      b.store,
		Registry:   reg,
		Log:        logger,

		TrustedProxies: cfg.TrustedProxies,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC health with interceptors; TLS when both files are given
	var opts []grpc.ServerOption
	if *certFile != "" && *keyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(*certFile, *keyFile)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	hs := health.NewServer()
	grpcSrv := grpcserver.New(logger, hs, cfg.Dev(), opts...)
	go grpcserver.NewHealthWatcher(hs, b.store, logger).Run(ctx, 10*time.Second)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		errCh <- grpcSrv.Serve(lis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdown(logger, httpSrv, grpcSrv)
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		shutdown(logger, httpSrv, grpcSrv)
		b.close()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newLogger(cfg config.App) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.Dev() {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func shutdown(logger *zap.Logger, httpSrv *http.Server, grpcSrv *grpc.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		grpcSrv.Stop()
	}
}
