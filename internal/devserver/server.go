package devserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

//go:embed client/reload.js
var reloadJS []byte

// Config holds the dev server settings.
type Config struct {
	// Dir is the directory served to browsers.
	Dir string
	// Port to listen on. Zero picks a free port.
	Port int
	// Health enables the /health endpoint.
	Health bool
}

// Server is the live reload dev server. It owns its connection set; nothing
// about it is global.
type Server struct {
	ctx    context.Context
	cfg    Config
	io     *socket.Server
	mux    *http.ServeMux
	mu     sync.RWMutex
	conns  map[socket.SocketId]*socket.Socket
	http   *http.Server
	ln     net.Listener
	closed chan struct{}
}

// New builds a server. ctx carries the logger used for connection events.
func New(ctx context.Context, cfg Config) *Server {
	s := &Server{
		ctx:   ctx,
		cfg:   cfg,
		mux:   http.NewServeMux(),
		conns: make(map[socket.SocketId]*socket.Socket),
	}

	opts := socket.DefaultServerOptions()
	opts.SetServeClient(true)
	opts.SetCors(&types.Cors{Origin: "*"})
	s.io = socket.NewServer(nil, opts)
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.add(client)
		client.On("disconnect", func(reason ...any) {
			s.remove(client, reason...)
		})
	})

	s.mux.Handle("/socket.io/", s.io.ServeHandler(opts))
	s.mux.HandleFunc(ClientPath, s.clientHandler)
	if cfg.Health {
		s.mux.HandleFunc("/health", s.healthHandler)
	}
	s.mux.Handle("/", newStaticHandler(cfg.Dir))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) add(c *socket.Socket) {
	s.mu.Lock()
	s.conns[c.Id()] = c
	n := len(s.conns)
	s.mu.Unlock()
	ctxlog.FromContext(s.ctx).Debug("Browser connected.", "sid", c.Id(), "clients", n)
}

func (s *Server) remove(c *socket.Socket, reason ...any) {
	s.mu.Lock()
	delete(s.conns, c.Id())
	n := len(s.conns)
	s.mu.Unlock()
	ctxlog.FromContext(s.ctx).Debug("Browser disconnected.", "sid", c.Id(), "reason", fmt.Sprint(reason...), "clients", n)
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Publish emits event with payload to every connected browser and returns
// how many were addressed. Without clients it does nothing.
func (s *Server) Publish(event string, payload any) int {
	s.mu.RLock()
	targets := make([]*socket.Socket, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	logger := ctxlog.FromContext(s.ctx)
	for _, c := range targets {
		logger.Debug("Notifying browser.", "sid", c.Id(), "event", event)
		c.Emit(event, payload)
	}
	return len(targets)
}

func (s *Server) clientHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(reloadJS)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(s.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Start begins listening and serving in the background.
func (s *Server) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	if s.http != nil {
		s.mu.Unlock()
		return errors.New("dev server already started")
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	closed := make(chan struct{})
	s.ln = ln
	s.http = srv
	s.closed = closed
	s.mu.Unlock()

	go func() {
		defer close(closed)
		logger.Info("🌐 Dev server starting", "address", s.URL(), "dir", s.cfg.Dir)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dev server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return ""
	}
	port := s.ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://localhost:%d", port)
}

// Shutdown closes every browser connection and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	srv, closed := s.http, s.closed
	if srv != nil {
		clear(s.conns)
	}
	s.mu.Unlock()
	if srv == nil {
		logger.Debug("Dev server was not running.")
		return nil
	}

	logger.Info("🌐 Shutting down dev server...")
	s.io.Close(nil)

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Dev server shutdown failed", "error", err)
		return err
	}
	<-closed
	logger.Debug("Dev server shut down gracefully.")
	return nil
}

// Serve starts the server and blocks until ctx is cancelled, then shuts it
// down with a five second grace period.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
