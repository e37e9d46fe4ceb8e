package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider is implemented by internal/server.Server to expose a
// point-in-time snapshot for the /stats endpoint. It is expressed as
// primitive getters rather than a shared struct type so internal/server
// does not need to import internal/admin to satisfy it (Go interface
// satisfaction only requires matching method signatures, not a shared
// named return type).
type StatsProvider interface {
	QueueLen() int
	QueueCap() int
	ActiveConnections() int
}

// Stats is the JSON body served at /stats.
type Stats struct {
	QueueLen   int `json:"queue_len"`
	QueueCap   int `json:"queue_cap"`
	ActiveConn int `json:"active_connections"`
}

// Admin serves the operator-facing HTTP surface.
type Admin struct {
	listen   string
	provider StatsProvider
	registry *prometheus.Registry
}

// New constructs an Admin bound to listen, reporting stats from provider
// and metrics from registry.
func New(listen string, provider StatsProvider, registry *prometheus.Registry) *Admin {
	return &Admin{listen: listen, provider: provider, registry: registry}
}

// Router builds the handler routed by path, shared between the net/http
// and fasthttp adapters.
func (a *Admin) Router(w ResponseWriter, r *Request) {
	switch r.Path {
	case "/healthz":
		a.handleHealthz(w, r)
	case "/stats":
		a.handleStats(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *Admin) handleHealthz(w ResponseWriter, _ *Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *Admin) handleStats(w ResponseWriter, _ *Request) {
	stats := Stats{
		QueueLen:   a.provider.QueueLen(),
		QueueCap:   a.provider.QueueCap(),
		ActiveConn: a.provider.ActiveConnections(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writerAdapter{w}).Encode(stats)
}

// writerAdapter lets json.Encoder write through the ResponseWriter
// interface's plain io.Writer-shaped Write method.
type writerAdapter struct{ w ResponseWriter }

func (a writerAdapter) Write(p []byte) (int, error) { return a.w.Write(p) }

// NetHTTPHandler builds a gorilla/mux-routed http.Handler serving
// /healthz, /stats, and /metrics (via promhttp) — the default transport
// used by cmd/httpcored.
func (a *Admin) NetHTTPHandler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/healthz", NetHTTPAdapter(a.Router)).Methods(http.MethodGet)
	r.Handle("/stats", NetHTTPAdapter(a.Router)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Serve runs the net/http admin server until ctx is canceled.
func (a *Admin) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.listen,
		Handler: a.NetHTTPHandler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
