package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/config"
)

func testConfig() config.Config {
	return config.Config{
		Host:                "127.0.0.1",
		Port:                8765,
		UpdateInterval:      50 * time.Millisecond,
		Headless:            true,
		VideoMode:           config.VideoModeCamera,
		WSWriteTimeout:      time.Second,
		ReadHeaderTimeout:   10 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

func newTestServer(t *testing.T, clock clockwork.Clock) (*Server, *httptest.Server) {
	t.Helper()

	s := New(testConfig(), slog.New(slog.DiscardHandler), clock)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	_, srv := newTestServer(t, clockwork.NewFakeClock())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t, clockwork.NewFakeClock())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "waveform_hub_connected_clients")
}

func TestWebSocketEndToEnd(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s, srv := newTestServer(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- s.Loop().Run(ctx) }()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	readFrame := func() map[string]any {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		return decoded
	}

	// Initial message, then periodic broadcasts as the clock advances.
	initial := readFrame()
	assert.Equal(t, "waveform", initial["type"])
	data := initial["data"].(map[string]any)
	assert.Equal(t, true, data["connected"])

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(50 * time.Millisecond)

	periodic := readFrame()
	assert.Equal(t, "waveform", periodic["type"])
	pdata := periodic["data"].(map[string]any)
	assert.NotContains(t, pdata, "connected")
	assert.Contains(t, pdata, "timestamp")

	// Audio fed through the tracker shows up in subsequent broadcasts.
	s.Tracker().FeedAudio([]byte{0x00, 0x80, 0x00, 0x80})
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(50 * time.Millisecond)

	next := readFrame()
	amp := next["data"].(map[string]any)["amplitude"].(float64)
	assert.Greater(t, amp, 0.0)

	cancel()
	require.ErrorIs(t, <-loopDone, context.Canceled)
}
