package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server runs the API router on its own listener.
type Server struct {
	addr       string
	handler    http.Handler
	log        *zap.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer prepares a server for handler on addr.
func NewServer(addr string, handler http.Handler, log *zap.Logger) *Server {
	return &Server{addr: addr, handler: handler, log: log}
}

// Start begins serving. The returned channel receives a serve error, and is closed on stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.New("http server already running")
	}
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, err
	}
	s.listener = lis
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", zap.Error(err))
			errCh <- err
		}
	}()
	s.log.Info("http server started", zap.String("addr", lis.Addr().String()))
	return errCh, nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listening address, or "" if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
