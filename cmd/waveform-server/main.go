package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/config"
	gatewayserver "github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/server"
)

// waveform-server runs the relay without the Gemini bridge: clients see the
// idle breathing animation and the full protocol surface. Useful for module
// development against a machine with no API key.

func runServer(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Without the bridge there is no reason to listen beyond the local host
	// unless the operator says otherwise.
	if os.Getenv("WAVEFORM_HOST") == "" {
		cfg.Host = config.DefaultLocalHost
	}

	srv := gatewayserver.New(cfg, logger, nil)
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting waveform server (no audio bridge)",
		"addr", cfg.Addr(),
		"update_interval", cfg.UpdateInterval,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := srv.Loop().Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("waveform server stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	_ = godotenv.Load()

	if err := runServer(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "waveform-server: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr))
}
