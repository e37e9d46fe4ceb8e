// Command httpcored-fasthttp-admin runs the main httpcored server with its
// admin surface served over fasthttp instead of net/http, demonstrating
// internal/admin's transport-agnostic handler plumbed through the
// alternate adapter.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/valyala/fasthttp"

	"github.com/oriane-systems/httpcore/internal/admin"
	"github.com/oriane-systems/httpcore/internal/config"
	"github.com/oriane-systems/httpcore/internal/lifecycle"
	"github.com/oriane-systems/httpcore/internal/metrics"
	"github.com/oriane-systems/httpcore/internal/obslog"
	"github.com/oriane-systems/httpcore/internal/reporter"
	"github.com/oriane-systems/httpcore/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "httpcored-fasthttp-admin:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := config.ParseConfigFlags()
	cfg, err := config.LoadEffectiveConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	obslog.Init()

	ctx, cancel := lifecycle.SetupSignalHandler(context.Background())
	defer cancel()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}

	reporterCancel, err := reporter.Start(ctx, cfg.Reporter)
	if err != nil {
		return fmt.Errorf("start reporter: %w", err)
	}
	defer reporterCancel()

	adm := admin.New(cfg.Admin.Listen, srv, metrics.Registry)

	adminErrCh := make(chan error, 1)
	go func() {
		adminErrCh <- serveFastHTTPAdmin(ctx, cfg.Admin.Listen, adm)
	}()

	obslog.Log.Info("httpcored starting (fasthttp admin)",
		"listen", cfg.Server.Listen,
		"admin_listen", cfg.Admin.Listen,
		"workers", cfg.Server.Workers,
	)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.Run(ctx)
	}()

	select {
	case err := <-serveErrCh:
		cancel()
		<-adminErrCh
		return err
	case err := <-adminErrCh:
		cancel()
		<-serveErrCh
		return err
	case <-ctx.Done():
		<-serveErrCh
		<-adminErrCh
		return nil
	}
}

// serveFastHTTPAdmin runs the admin router (healthz/stats; metrics is
// served by the net/http-only promhttp handler, so it's intentionally
// absent from this POC surface) over fasthttp until ctx is canceled.
func serveFastHTTPAdmin(ctx context.Context, listen string, adm *admin.Admin) error {
	srv := &fasthttp.Server{
		Handler: admin.FastHTTPAdapter(adm.Router),
		Name:    "httpcored-admin",
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(listen)
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}
