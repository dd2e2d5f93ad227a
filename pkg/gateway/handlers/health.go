package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config config.Config
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK        bool     `json:"ok"`
		Headless  bool     `json:"headless"`
		VideoMode string   `json:"video_mode"`
		Issues    []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Config.UpdateInterval <= 0 {
		issues = append(issues, "update interval must be > 0")
	}
	switch h.Config.VideoMode {
	case config.VideoModeCamera, config.VideoModeScreen, config.VideoModeNone:
	default:
		issues = append(issues, "invalid video_mode")
	}
	if h.Config.WSWriteTimeout <= 0 {
		issues = append(issues, "ws write timeout must be > 0")
	}
	if h.Config.ReadHeaderTimeout <= 0 || h.Config.ShutdownGracePeriod <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:        ok,
		Headless:  h.Config.Headless,
		VideoMode: string(h.Config.VideoMode),
		Issues:    issues,
	})
}
