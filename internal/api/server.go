// Package api serves the request-producer HTTP interface: creating and
// polling the approval request, and reading or changing the notification
// mode. It also hosts the voice-skill webhook and a periodic sweep of
// expired store rows.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/store"
)

// Config holds API server configuration.
type Config struct {
	// Host is the network interface to bind to.
	Host string `yaml:"host"`
	// Port is the TCP port number to listen on.
	Port int `yaml:"port"`
	// SweepSchedule is the cron spec for the expired-row sweep.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:          "127.0.0.1",
		Port:          8485,
		SweepSchedule: "@every 10m",
	}
}

// Notifier delivers the approval prompt for a freshly created request.
// Delivery happens synchronously within the create operation and never
// affects its outcome.
type Notifier interface {
	Dispatch(ctx context.Context, req *store.Request)
}

// Server is the approval API server. It is safe for concurrent use.
type Server struct {
	config   *Config
	store    *store.Store
	notifier Notifier
	skill    http.Handler
	server   *http.Server
	sweeper  *cron.Cron
	mu       sync.Mutex
	running  bool
	log      *slog.Logger
}

// ServerOption is a functional option for configuring Server.
type ServerOption func(*Server)

// WithSkillHandler mounts the voice-skill webhook at /skill.
func WithSkillHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.skill = h
	}
}

// NewServer creates a new API server. The server is not started until Start
// is called.
func NewServer(config *Config, st *store.Store, notifier Notifier, opts ...ServerOption) *Server {
	s := &Server{
		config:   config,
		store:    st,
		notifier: notifier,
		log:      logging.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/request", s.handleRequest)
	mux.HandleFunc("/mode", s.handleMode)
	if s.skill != nil {
		mux.Handle("/skill", s.skill)
	}
	return mux
}

// Start starts the server and blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.startSweeper()

	s.log.Info("API server starting", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server with a 30-second timeout.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// startSweeper schedules the periodic deletion of expired rows.
func (s *Server) startSweeper() {
	if s.config.SweepSchedule == "" {
		return
	}

	s.sweeper = cron.New()
	_, err := s.sweeper.AddFunc(s.config.SweepSchedule, func() {
		n, err := s.store.SweepExpired()
		if err != nil {
			s.log.Warn("Expired-row sweep failed", slog.Any("error", err))
			return
		}
		if n > 0 {
			s.log.Debug("Swept expired rows", slog.Int64("rows", n))
		}
	})
	if err != nil {
		s.log.Warn("Invalid sweep schedule, sweeper disabled",
			slog.String("schedule", s.config.SweepSchedule),
			slog.Any("error", err))
		s.sweeper = nil
		return
	}
	s.sweeper.Start()
}
