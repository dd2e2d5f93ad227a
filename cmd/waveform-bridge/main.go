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
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/bridge"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/config"
	gatewayserver "github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/server"
)

type audioBridge interface {
	Run(ctx context.Context) error
}

type relayDeps struct {
	loadConfig func() (config.Config, error)
	newServer  func(config.Config, *slog.Logger, clockwork.Clock) *gatewayserver.Server
	newBridge  func(cfg config.Config, logger *slog.Logger, srv *gatewayserver.Server) (audioBridge, error)
}

func defaultRelayDeps() relayDeps {
	return relayDeps{
		loadConfig: config.LoadFromEnv,
		newServer:  gatewayserver.New,
		newBridge: func(cfg config.Config, logger *slog.Logger, srv *gatewayserver.Server) (audioBridge, error) {
			return bridge.New(bridge.Config{
				APIKey:      cfg.GeminiAPIKey,
				Model:       cfg.GeminiModel,
				VideoMode:   cfg.VideoMode,
				CameraIndex: cfg.CameraIndex,
			}, logger, srv.Tracker(), srv.Metrics().AudioChunksTotal)
		},
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runRelay(ctx context.Context, logger *slog.Logger, deps relayDeps) error {
	if deps.loadConfig == nil || deps.newServer == nil || deps.newBridge == nil {
		return errors.New("missing dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY must be set")
	}

	srv := deps.newServer(cfg, logger, nil)
	b, err := deps.newBridge(cfg, logger, srv)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting waveform relay",
		"addr", cfg.Addr(),
		"update_interval", cfg.UpdateInterval,
		"model", cfg.GeminiModel,
		"headless", cfg.Headless,
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

	g.Go(func() error {
		err := b.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("waveform relay stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps relayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := runRelay(ctx, logger, deps); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "waveform-bridge: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultRelayDeps()))
}
