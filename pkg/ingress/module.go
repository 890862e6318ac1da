// Package ingress implements the ingress host (spec.md §4.6): the
// single REST_HOST module that owns the composed router, binds the
// HTTP listener, and serves it with graceful drain. Grounded on
// original_source/modules/api_ingress/src/lib.rs, re-expressed with
// go-chi/chi instead of axum and net/http's graceful Shutdown instead
// of axum::serve's with_graceful_shutdown.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/hyperspot-dev/hyperspot/pkg/openapi"
)

// Name is the module's descriptor name.
const Name = "api_ingress"

// StopTimeout bounds how long Stop waits for in-flight requests to
// drain before the lifecycle wrapper aborts the server's goroutine;
// it is the outer, authoritative bound per spec.md §9's cooperative
// shutdown note.
const StopTimeout = 30 * time.Second

// Module is the REST_HOST + STATEFUL ingress module.
type Module struct {
	cfg      Config
	registry *openapi.Registry
	router   chi.Router
	lc       *modkit.WithLifecycle
}

// New constructs an uninitialized ingress module.
func New() modkit.Module { return &Module{} }

func (m *Module) Name() string { return Name }

// Init loads configuration (defaults, then overlaid by the config
// provider) and builds the OpenAPI registry. It does not bind a
// listener; binding happens in Run, during the Start phase.
func (m *Module) Init(ctx *modkit.ModuleCtx) error {
	cfg := DefaultConfig()
	if err := ctx.Config(&cfg); err != nil {
		return err
	}
	m.cfg = cfg
	m.registry = openapi.NewRegistry("HyperSpot API", "0.1.0", "HyperSpot Server API Documentation")
	m.lc = modkit.NewWithLifecycle(Name, m, true, StopTimeout)
	return nil
}

// AsRegistry implements modkit.RESTHostModule.
func (m *Module) AsRegistry() modkit.OpenAPIRegistry { return m.registry }

// RESTPrepare adds the built-in health routes before any other module
// registers its own routes.
func (m *Module) RESTPrepare(ctx *modkit.ModuleCtx, router chi.Router) (chi.Router, error) {
	router.Get("/health", healthHandler)
	router.Get("/healthz", healthzHandler)
	return router, nil
}

// RESTFinalize attaches /openapi.json and /docs (if enabled) once
// every REST-capable module has registered its routes, and stores the
// finalized router for Run to serve.
func (m *Module) RESTFinalize(ctx *modkit.ModuleCtx, router chi.Router) (chi.Router, error) {
	if m.cfg.EnableDocs {
		if _, err := m.registry.RegisterProblemSchema(); err != nil {
			return nil, err
		}
		doc := m.registry.Snapshot()
		router.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(doc)
		})
		router.Get("/docs", docsHandler)
	}
	m.router = router
	return router, nil
}

// Start/Stop delegate to the generated lifecycle wrapper around Run.
func (m *Module) Start(cancel modkit.Token) error { return m.lc.Start(cancel) }
func (m *Module) Stop(cancel modkit.Token) error  { return m.lc.Stop(cancel) }

// Run is the lifecycle entry point: bind, signal ready, serve, and
// drain on cancellation. Implements modkit.Runnable.
func (m *Module) Run(cancel modkit.Token, ready *modkit.ReadySignal) error {
	ln, err := net.Listen("tcp", m.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", modkit.ErrBindFailure, m.cfg.BindAddr, err)
	}

	srv := &http.Server{Handler: m.buildHandler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	ready.Notify()

	select {
	case <-cancel.Cancelled():
		shutdownCtx, done := context.WithTimeout(context.Background(), StopTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ingress: graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Addr returns the configured bind address. It is not updated with
// the address actually bound, so with a port of 0 (e.g.
// 127.0.0.1:0) it does not name the OS-assigned port.
func (m *Module) Addr() string { return m.cfg.BindAddr }

// buildHandler wraps the finalized router with the middleware chain,
// in the exact order the original's build_router applies layers:
// request-id propagation, per-request timeout, optional permissive
// CORS, then the request body size limit innermost.
func (m *Module) buildHandler() http.Handler {
	r := m.router
	if r == nil {
		r = chi.NewRouter()
	}

	var h http.Handler = r
	h = bodySizeLimitMiddleware(int64(m.cfg.MaxRequestSizeMB) * 1024 * 1024)(h)
	if m.cfg.CORSEnabled {
		h = permissiveCORSMiddleware(h)
	}
	h = timeoutMiddleware(time.Duration(m.cfg.RequestTimeoutSecs) * time.Second)(h)
	h = requestIDMiddleware(h)
	return h
}
