package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genai"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/config"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/waveform"
)

// AudioSink receives raw PCM chunks as they arrive from the live session.
type AudioSink interface {
	FeedAudio(pcm []byte)
}

// Config selects the upstream model and session behavior.
type Config struct {
	APIKey      string
	Model       string
	VideoMode   config.VideoMode
	CameraIndex int
}

// Bridge maintains a Gemini live session and forwards the model's audio
// output into an AudioSink.
type Bridge struct {
	cfg         Config
	logger      *slog.Logger
	sink        AudioSink
	audioChunks prometheus.Counter
}

// New creates a bridge. audioChunks may be nil.
func New(cfg Config, logger *slog.Logger, sink AudioSink, audioChunks prometheus.Counter) (*Bridge, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model must not be empty")
	}
	if sink == nil {
		return nil, fmt.Errorf("audio sink must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{cfg: cfg, logger: logger, sink: sink, audioChunks: audioChunks}, nil
}

// Run connects to the live API and pumps audio until ctx is canceled or the
// session ends. The session is closed when ctx is done, which unblocks the
// receive loop.
func (b *Bridge) Run(ctx context.Context) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  b.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}

	session, err := client.Live.Connect(ctx, b.cfg.Model, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	})
	if err != nil {
		return fmt.Errorf("connect live session: %w", err)
	}

	b.logger.Info("live session connected",
		"model", b.cfg.Model,
		"video_mode", string(b.cfg.VideoMode),
		"camera_index", b.cfg.CameraIndex,
	)

	closed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-closed:
		}
	}()
	defer close(closed)
	defer session.Close()

	for {
		msg, err := session.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("receive live message: %w", err)
		}
		b.handleMessage(msg)
	}
}

func (b *Bridge) handleMessage(msg *genai.LiveServerMessage) {
	for _, pcm := range extractAudio(msg) {
		if b.audioChunks != nil {
			b.audioChunks.Inc()
		}
		b.sink.FeedAudio(pcm)
		b.logger.Debug("audio chunk",
			"bytes", len(pcm),
			"energy", waveform.RMSEnergy(pcm),
		)
	}
}

// extractAudio pulls the inline PCM payloads out of one server message.
// Non-audio messages yield nothing.
func extractAudio(msg *genai.LiveServerMessage) [][]byte {
	if msg == nil || msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		return nil
	}
	var chunks [][]byte
	for _, part := range msg.ServerContent.ModelTurn.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		chunks = append(chunks, part.InlineData.Data)
	}
	return chunks
}
