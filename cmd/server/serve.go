package main

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	pv "github.com/and161185/gophpress/api/pressv1"
	"github.com/and161185/gophpress/internal/auth"
	"github.com/and161185/gophpress/internal/config"
	"github.com/and161185/gophpress/internal/crypto"
	"github.com/and161185/gophpress/internal/observability"
	grpcserver "github.com/and161185/gophpress/internal/server/grpc"
	httpserver "github.com/and161185/gophpress/internal/server/http"
	"github.com/and161185/gophpress/internal/service"
	"github.com/and161185/gophpress/internal/token"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd starts the API servers.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC APIs",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTP.Addr),
		zap.String("grpc", cfg.GRPC.Addr),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InstallTracerProvider()
	defer func() { _ = shutdownTracing(context.Background()) }()

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	var ready atomic.Bool
	obs := observability.NewServer(cfg.Metrics.Addr, log, func() bool {
		if !ready.Load() {
			return false
		}
		pctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return d.ping(pctx) == nil
	})
	metrics := obs.Metrics()

	hasher, err := crypto.NewHasher(cfg.HashParams())
	if err != nil {
		return err
	}
	tokens, err := token.New([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	if err != nil {
		return err
	}
	guard := auth.NewGuard(tokens, log)
	guard.OnFailure(metrics.AuthFailure)

	authSvc := service.NewAuthService(d.users, crypto.NewPool(hasher, cfg.Hash.Workers), tokens, d.limiter, log,
		service.WithAuthMetrics(metrics))
	postSvc := service.NewPostService(d.posts, d.users, log, service.WithPostMetrics(metrics))

	errCh := make(chan error, 3)
	forward := func(ch <-chan error) {
		if err, ok := <-ch; ok && err != nil {
			errCh <- err
		}
	}

	if cfg.Metrics.Addr != "" {
		ch, err := obs.Start()
		if err != nil {
			return err
		}
		go forward(ch)
	}

	var httpSrv *httpserver.Server
	if cfg.HTTP.Addr != "" {
		if !cfg.Dev {
			gin.SetMode(gin.ReleaseMode)
		}
		router := httpserver.NewRouter(httpserver.NewHandlers(authSvc, postSvc, log), guard, metrics, log)
		httpSrv = httpserver.NewServer(cfg.HTTP.Addr, router, log)
		ch, err := httpSrv.Start()
		if err != nil {
			return err
		}
		go forward(ch)
	}

	var gs *grpc.Server
	if cfg.GRPC.Addr != "" {
		gs, err = newGRPCServer(cfg, log, metrics, guard, grpcserver.New(authSvc, postSvc, log))
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		go func() {
			log.Info("grpc listening", zap.String("addr", lis.Addr().String()), zap.Bool("tls", cfg.GRPC.TLSCert != ""))
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	ready.Store(true)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		log.Error("server error", zap.Error(runErr))
	}
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if gs != nil {
		stopGRPC(shutdownCtx, gs)
	}
	if httpSrv != nil {
		if err := httpSrv.Stop(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}
	if err := obs.Stop(shutdownCtx); err != nil {
		log.Warn("observability shutdown", zap.Error(err))
	}
	log.Info("shutdown complete")
	return runErr
}

func newGRPCServer(cfg *config.Config, log *zap.Logger, m *observability.Metrics, g *auth.Guard, app pv.PressServer) (*grpc.Server, error) {
	opts := []grpc.ServerOption{grpcserver.Chain(log, m, grpcserver.AuthUnary(g, grpcserver.PublicMethods))}
	if cfg.GRPC.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.GRPC.TLSCert, cfg.GRPC.TLSKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)
	pv.RegisterPressServer(s, app)

	hs := health.NewServer()
	hs.SetServingStatus(pv.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}
	return s, nil
}

// stopGRPC drains in-flight calls, forcing a stop when ctx expires.
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}
