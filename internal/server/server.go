// Package server implements the TCP listener and the lifecycle that ties the
// hub, the accept loop and the HTTP gateway together.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 5 * time.Second

// Server accepts line protocol clients over TCP and, when configured, the
// WebSocket gateway over HTTP.
type Server struct {
	cfg      Config
	hub      *Hub
	listener net.Listener
	httpLn   net.Listener
	http     *http.Server
	running  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// New creates a server from cfg. Nothing is bound until Listen.
func New(cfg Config) *Server {
	cfg = cfg.sanitized()
	return &Server{cfg: cfg, hub: NewHub(cfg)}
}

// Hub exposes the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen binds the TCP address and, if set, the HTTP address. A bind failure
// is returned and nothing is served.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.TCPAddr, err)
	}
	s.listener = ln

	if s.cfg.HTTPAddr == "" {
		return nil
	}

	httpLn, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("listen on %s: %w", s.cfg.HTTPAddr, err)
	}
	s.httpLn = httpLn
	s.http = CreateServer(s.cfg.HTTPAddr, SetupRoutes(s.hub))
	return nil
}

// Addr returns the bound TCP address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr returns the bound HTTP address, or nil when HTTP is disabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// Serve runs the hub, the accept loop and the HTTP server until ctx is
// cancelled, Shutdown is called, or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("serve: Listen has not been called")
	}
	s.running.Store(true)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run()
		return nil
	})

	g.Go(s.acceptLoop)

	if s.http != nil {
		g.Go(func() error {
			log.Info().Str("addr", s.httpLn.Addr().String()).Msg("HTTP gateway listening")
			if err := s.http.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http gateway: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.hub.ctx.Done():
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	})

	log.Info().Str("addr", s.listener.Addr().String()).Msg("chat server listening")
	return g.Wait()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("accept error")
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if _, err := s.hub.Attach(conn, conn.RemoteAddr().String()); err != nil {
			return nil
		}
	}
}

// Shutdown stops accepting, closes every connection and waits for their
// goroutines until ctx expires. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		var errs []error

		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		if s.http != nil {
			if err := ShutdownServer(ctx, s.http); err != nil {
				errs = append(errs, err)
			}
		}

		if s.running.Load() {
			timeout := defaultShutdownTimeout
			if deadline, ok := ctx.Deadline(); ok {
				timeout = time.Until(deadline)
			}
			if err := s.hub.Shutdown(timeout); err != nil {
				errs = append(errs, err)
			}
		} else {
			s.hub.cancel()
		}

		s.stopErr = errors.Join(errs...)
	})
	return s.stopErr
}
