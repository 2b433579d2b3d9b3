// Package api provides HTTP handlers and the main API server for CheckPulse.
//
// It exposes RESTful endpoints for participant enrollment, pending-survey
// resolution, the checkpoint wizard lifecycle, session ingest, and win
// tracking. The API integrates with the resolver, wizard, and store modules.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/stride-coaching/checkpulse/internal/normalize"
	"github.com/stride-coaching/checkpulse/internal/resolver"
	"github.com/stride-coaching/checkpulse/internal/store"
	"github.com/stride-coaching/checkpulse/internal/wizard"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown of in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr  string
	Hints resolver.HintSource
	// WizardOpts is forwarded to the wizard manager.
	WizardOpts []wizard.Option
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithHintSource installs an authoritative pending-survey hint source ahead
// of the resolver's derivation strategies.
func WithHintSource(h resolver.HintSource) Option {
	return func(o *Opts) { o.Hints = h }
}

// WithWizardOptions forwards options to the wizard manager.
func WithWizardOptions(opts ...wizard.Option) Option {
	return func(o *Opts) { o.WizardOpts = append(o.WizardOpts, opts...) }
}

// Server wires the store, resolver, and wizard manager behind the HTTP API.
type Server struct {
	addr     string
	st       store.Store
	resolver *resolver.Resolver
	wizards  *wizard.Manager
	httpSrv  *http.Server
}

// NewServer creates an API server over the given store.
func NewServer(st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		addr:     cfg.Addr,
		st:       st,
		resolver: resolver.New(st, cfg.Hints),
		wizards:  wizard.NewManager(st, normalize.BuildSubmission, cfg.WizardOpts...),
	}
	return s
}

// Handler returns the routed HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/participants", s.participantsHandler)
	mux.HandleFunc("/participants/", s.participantsHandler)
	mux.HandleFunc("/wizard/", s.wizardHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run API listening", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run API stopped")
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server.Run listener failed", "error", err, "addr", s.addr)
			return err
		}
		return nil
	}
}
