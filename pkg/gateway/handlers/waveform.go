package handlers

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/hub"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/metrics"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/protocol"
)

// IntervalSetter changes the broadcast cadence at runtime.
type IntervalSetter interface {
	SetInterval(d time.Duration)
}

// WaveformHandler upgrades the connection and serves the waveform protocol:
// the hub delivers outbound messages while this handler's read loop handles
// config and ping frames from the client.
type WaveformHandler struct {
	Logger  *slog.Logger
	Hub     *hub.Hub
	Loop    IntervalSetter
	Metrics *metrics.Metrics

	upgrader websocket.Upgrader
}

func NewWaveformHandler(logger *slog.Logger, h *hub.Hub, loop IntervalSetter, m *metrics.Metrics) *WaveformHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WaveformHandler{
		Logger:  logger,
		Hub:     h,
		Loop:    loop,
		Metrics: m,
		upgrader: websocket.Upgrader{
			// The relay serves a local browser module; origins vary with the
			// host setup and carry no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WaveformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.Hub.Register(conn)
	defer func() {
		h.Hub.Unregister(client)
		_ = conn.Close()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				h.Logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.handleFrame(client, data)
	}
}

func (h *WaveformHandler) handleFrame(client *hub.Client, data []byte) {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		h.countMessage("invalid")
		// A bad frame never tears down the connection.
		h.Logger.Warn("invalid client message", "error", err)
		return
	}

	switch m := msg.(type) {
	case protocol.ClientConfig:
		h.countMessage(protocol.TypeConfig)
		if h.Loop != nil {
			h.Loop.SetInterval(time.Duration(m.Data.UpdateIntervalMS) * time.Millisecond)
		}
	case protocol.ClientPing:
		h.countMessage(protocol.TypePing)
		_ = h.Hub.SendTo(client, protocol.Pong())
	case protocol.ClientUnknown:
		h.countMessage("unknown")
		h.Logger.Debug("ignoring unknown message type", "type", m.Type)
	}
}

func (h *WaveformHandler) countMessage(kind string) {
	if h.Metrics != nil {
		h.Metrics.MessagesReceivedTotal.WithLabelValues(kind).Inc()
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, net.ErrClosed)
}
