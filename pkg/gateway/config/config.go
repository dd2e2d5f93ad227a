package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type VideoMode string

const (
	VideoModeCamera VideoMode = "camera"
	VideoModeScreen VideoMode = "screen"
	VideoModeNone   VideoMode = "none"
)

// Config holds the relay server settings plus the Gemini passthrough values
// consumed by the audio bridge. Everything is environment-derived; there is
// no config file and no persisted state.
type Config struct {
	Host string
	Port int

	// UpdateInterval is the broadcast cadence. Clients may change it at
	// runtime with a config message; this is only the starting value.
	UpdateInterval time.Duration

	// Headless selects the waveform sink variant. The browser module does
	// its own rendering, so headless is the default.
	Headless bool

	// Gemini passthrough. VideoMode and CameraIndex select behavior of the
	// upstream capture path and are forwarded unchanged.
	GeminiAPIKey string
	GeminiModel  string
	VideoMode    VideoMode
	CameraIndex  int

	WSWriteTimeout      time.Duration
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

const (
	DefaultHost      = "0.0.0.0"
	DefaultLocalHost = "localhost"
	DefaultPort      = 8765
)

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Host:                envOr("WAVEFORM_HOST", DefaultHost),
		Port:                envIntOr("WAVEFORM_PORT", DefaultPort),
		UpdateInterval:      envDurationOr("WAVEFORM_UPDATE_INTERVAL", time.Second/60),
		Headless:            envBoolOr("GEMINI_HEADLESS", true),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:         envOr("GEMINI_MODEL", "gemini-2.0-flash-live-001"),
		VideoMode:           VideoMode(envOr("GEMINI_VIDEO_MODE", string(VideoModeCamera))),
		CameraIndex:         envIntOr("GEMINI_CAMERA_INDEX", 0),
		WSWriteTimeout:      envDurationOr("WAVEFORM_WS_WRITE_TIMEOUT", 5*time.Second),
		ReadHeaderTimeout:   envDurationOr("WAVEFORM_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("WAVEFORM_SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if strings.TrimSpace(cfg.Host) == "" {
		return Config{}, fmt.Errorf("WAVEFORM_HOST must not be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("WAVEFORM_PORT must be in 1..65535")
	}
	if cfg.UpdateInterval <= 0 {
		return Config{}, fmt.Errorf("WAVEFORM_UPDATE_INTERVAL must be > 0")
	}
	switch cfg.VideoMode {
	case VideoModeCamera, VideoModeScreen, VideoModeNone:
	default:
		return Config{}, fmt.Errorf("GEMINI_VIDEO_MODE must be one of camera|screen|none")
	}
	if cfg.CameraIndex < 0 {
		return Config{}, fmt.Errorf("GEMINI_CAMERA_INDEX must be >= 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("WAVEFORM_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("WAVEFORM_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("WAVEFORM_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
