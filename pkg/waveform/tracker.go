package waveform

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// smoothingFactor is applied once per tick and is intentionally not
	// scaled by the tick duration; the loop runs at a nominally constant
	// 16ms cadence.
	smoothingFactor = 0.18

	// phaseStep accrues every tick regardless of audio activity.
	phaseStep = 0.35

	// idleThreshold is how long after the last audio chunk the signal is
	// considered idle.
	idleThreshold = 250 * time.Millisecond

	// idleAmplitude is the peak of the breathing floor applied while idle.
	idleAmplitude = 0.06

	// idleTargetDecay shrinks the target toward zero while idle.
	idleTargetDecay = 0.96
)

// Tracker maintains a smoothed, human-perceivable amplitude/phase signal
// from raw audio energy. FeedAudio is called by the audio bridge as PCM
// chunks arrive; Tick is called once per update period by the broadcast
// loop. Both are safe for concurrent use.
type Tracker struct {
	clock clockwork.Clock
	sink  Sink

	mu        sync.Mutex
	current   float64
	target    float64
	phase     float64
	lastAudio time.Time
	closed    bool
}

// NewTracker creates a tracker. sink may be nil.
func NewTracker(clock clockwork.Clock, sink Sink) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock, sink: sink}
}

// FeedAudio updates the target amplitude from a chunk of 16-bit signed
// little-endian PCM. Empty input is a no-op. The call never blocks beyond
// the tracker mutex.
func (t *Tracker) FeedAudio(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	amp := MeanAmplitude(pcm)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.target = amp
	t.lastAudio = t.clock.Now()
}

// Tick advances the signal by one update period: exponential smoothing
// toward the target, the idle breathing floor when no audio has arrived
// recently, and unconditional phase accrual.
func (t *Tracker) Tick() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.current += (t.target - t.current) * smoothingFactor

	// lastAudio starts at the zero time, so a tracker that has never seen
	// audio idles immediately.
	if t.clock.Now().Sub(t.lastAudio) > idleThreshold {
		idle := idleAmplitude * (0.6 + 0.4*math.Sin(t.phase*0.6))
		// The idle floor never lowers an active signal.
		if idle > t.current {
			t.current = idle
		}
		t.target *= idleTargetDecay
	}

	t.phase += phaseStep

	current := t.current
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink.Update(current)
	}
}

// Snapshot returns the current amplitude and phase.
func (t *Tracker) Snapshot() (amplitude, phase float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.phase
}

// Close stops the tracker; subsequent Tick and FeedAudio calls are no-ops.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink.Stop()
	}
}
