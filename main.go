package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/freekieb7/httpd/config"
	"github.com/freekieb7/httpd/filesystem"
	"github.com/freekieb7/httpd/http"
	"github.com/freekieb7/httpd/routes"
	"github.com/freekieb7/httpd/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, args []string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(args, os.Getenv)
	if err != nil {
		return err
	}

	otelShutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
	}()

	logger := telemetry.NewLogger(cfg, os.Stderr)

	metrics, err := http.MetricsMiddleware(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	router := http.NewRouter()
	router.Use(
		http.TracingMiddleware(otel.GetTracerProvider()),
		metrics,
		http.RecoverMiddleware(),
	)
	routes.Register(router, filesystem.NewLocalFileSystem(cfg.Directory))

	server := http.NewServer(cfg.Telemetry.ServiceName, router.Handler())
	server.Logger = logger
	server.MaxConns = cfg.MaxConns
	server.MaxBodySize = cfg.MaxBodySize
	server.ReadTimeout = cfg.ReadTimeout

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe(ctx, cfg.Addr)
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-serverErrCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
