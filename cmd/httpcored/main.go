// Command httpcored runs the HTTP/1.1 request-parsing server: a TCP
// accept loop feeding a bounded queue, a fixed worker pool draining it
// through the incremental parser, a periodic stats reporter, and an
// operator-facing admin surface (/healthz, /metrics, /stats).
package main

import (
	"context"
	"fmt"
	"os"

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
		fmt.Fprintln(os.Stderr, "httpcored:", err)
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
		adminErrCh <- adm.Serve(ctx)
	}()

	obslog.Log.Info("httpcored starting",
		"listen", cfg.Server.Listen,
		"admin_listen", cfg.Admin.Listen,
		"workers", cfg.Server.Workers,
		"queue_capacity", cfg.Queue.Capacity,
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
