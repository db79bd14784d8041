// Package api runs the tradrx network listeners: the HTTP API (with the
// WebSocket live feed mounted on it) and the gRPC health service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"tradrx/internal/config"
)

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	cfg config.Server
	log *slog.Logger
	hub *Hub

	httpServer *http.Server
	httpLn     net.Listener

	grpcServer *grpc.Server
	health     *health.Server
	grpcLn     net.Listener
}

// NewServer creates a Server serving handler on the configured HTTP address.
// hub may be nil; when set it is closed on shutdown.
func NewServer(cfg config.Server, handler http.Handler, hub *Hub, log *slog.Logger) *Server {
	s := &Server{
		cfg: cfg,
		log: log,
		hub: hub,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if cfg.GRPCPort > 0 {
		s.grpcServer, s.health = newGRPCServer()
	}
	return s
}

// Listen binds the HTTP and (if enabled) gRPC listeners without serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.httpLn = ln

	if s.grpcServer != nil {
		addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.GRPCPort))
		gln, err := net.Listen("tcp", addr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		s.grpcLn = gln
	}
	return nil
}

// HTTPAddr returns the bound HTTP address. Valid after Listen.
func (s *Server) HTTPAddr() string {
	if s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is disabled.
func (s *Server) GRPCAddr() string {
	if s.grpcLn == nil {
		return ""
	}
	return s.grpcLn.Addr().String()
}

// Serve serves on the bound listeners and blocks until ctx is cancelled or a
// listener fails, then shuts everything down.
func (s *Server) Serve(ctx context.Context) error {
	if s.httpLn == nil {
		return errors.New("api: Serve called before Listen")
	}

	errc := make(chan error, 2)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.HTTPAddr())
		if err := s.httpServer.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	if s.grpcServer != nil {
		markServing(s.health)
		go func() {
			s.log.Info("gRPC server listening", "addr", s.GRPCAddr())
			if err := s.grpcServer.Serve(s.grpcLn); err != nil {
				errc <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
		s.log.Error("server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.log.Error("shutdown error", "error", err)
	}
	return serveErr
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until the
// context is cancelled or a fatal error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers. The
// health service reports NOT_SERVING first so load balancers stop routing traffic.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.hub != nil {
		s.hub.Close()
	}

	err := s.httpServer.Shutdown(ctx)

	if s.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.grpcServer.Stop()
		}
	}
	return err
}
