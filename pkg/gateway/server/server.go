package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/config"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/handlers"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/hub"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/loop"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/metrics"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/mw"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/waveform"
)

// Server wires the hub, the update loop and the HTTP surface together. The
// caller runs Loop().Run in its own goroutine and serves Handler() on the
// configured address.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	hub      *hub.Hub
	loop     *loop.UpdateLoop
}

func New(cfg config.Config, logger *slog.Logger, clock clockwork.Clock) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	h := hub.New(logger, m, cfg.WSWriteTimeout)
	sink := waveform.NewSink(cfg.Headless, os.Stdout)
	tracker := waveform.NewTracker(clock, sink)
	l := loop.New(logger, clock, tracker, h, cfg.UpdateInterval)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		registry: registry,
		metrics:  m,
		hub:      h,
		loop:     l,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg})
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.mux.Handle("/", handlers.NewWaveformHandler(s.logger, s.hub, s.loop, s.metrics))
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Loop returns the update loop so the caller can run it and feed its tracker.
func (s *Server) Loop() *loop.UpdateLoop {
	return s.loop
}

// Hub returns the client hub, mainly for inspection in tests.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Metrics returns the relay metrics for components outside the HTTP surface.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Tracker returns the amplitude tracker the audio bridge feeds.
func (s *Server) Tracker() *waveform.Tracker {
	return s.loop.Tracker()
}
