package loop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/protocol"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/waveform"
)

// Broadcaster delivers one message to every connected client.
type Broadcaster interface {
	Broadcast(msg any)
}

// UpdateLoop advances the amplitude tracker on a fixed cadence and publishes
// the resulting waveform state. The interval can be changed at runtime; a new
// value takes effect on the next cycle.
type UpdateLoop struct {
	logger      *slog.Logger
	clock       clockwork.Clock
	tracker     *waveform.Tracker
	broadcaster Broadcaster

	mu       sync.Mutex
	interval time.Duration
}

// New creates an update loop around tracker. A nil clock selects the real
// clock.
func New(logger *slog.Logger, clock clockwork.Clock, tracker *waveform.Tracker, b Broadcaster, interval time.Duration) *UpdateLoop {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &UpdateLoop{
		logger:      logger,
		clock:       clock,
		tracker:     tracker,
		broadcaster: b,
		interval:    interval,
	}
}

// Tracker returns the tracker the loop owns, for feeding audio into it.
func (l *UpdateLoop) Tracker() *waveform.Tracker {
	return l.tracker
}

// Interval returns the current cycle interval.
func (l *UpdateLoop) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// SetInterval changes the cycle interval. Non-positive values are ignored.
func (l *UpdateLoop) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	l.interval = d
	l.mu.Unlock()
	l.logger.Info("update interval changed", "interval", d)
}

// Run drives the loop until ctx is canceled. Each cycle ticks the tracker,
// broadcasts a waveform message, then waits one interval. On cancellation the
// tracker is closed before returning ctx.Err().
func (l *UpdateLoop) Run(ctx context.Context) error {
	defer l.tracker.Close()

	for {
		l.tracker.Tick()
		amplitude, phase := l.tracker.Snapshot()
		timestamp := float64(l.clock.Now().UnixNano()) / float64(time.Second)
		l.broadcaster.Broadcast(protocol.Waveform(amplitude, phase, timestamp))

		timer := l.clock.NewTimer(l.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}
