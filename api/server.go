package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopvia/shopvia-backend/pkg/logger"
)

// Server wraps the HTTP listener with sane timeouts and graceful shutdown.
type Server struct {
	srv    *http.Server
	logger *logger.Logger
}

func NewServer(addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logg,
	}
}

// Start blocks until the listener stops.
func (s *Server) Start(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info(s.logger.WithField(ctx, "addr", s.srv.Addr), "http server listening")
	}
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
