package waveform

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxPCM(samples int) []byte {
	// All samples at -32768 give a mean amplitude of exactly 1.0.
	s := make([]int16, samples)
	for i := range s {
		s[i] = -32768
	}
	return pcmFromSamples(s)
}

func TestTrackerFeedAudioZeroSamples(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(pcmFromSamples([]int16{0, 0, 0, 0}))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Equal(t, 0.0, tr.target)
}

func TestTrackerFeedAudioMeanNormalization(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(pcmFromSamples([]int16{16384, -16384, 16384, -16384}))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.InDelta(t, 0.5, tr.target, 1e-9)
}

func TestTrackerFeedAudioEmptyIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(maxPCM(8))
	tr.FeedAudio(nil)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.InDelta(t, 1.0, tr.target, 1e-9)
}

func TestTrackerExponentialConvergence(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	// Fresh audio keeps the tracker out of the idle branch.
	tr.FeedAudio(maxPCM(8))

	tr.Tick()
	amp, _ := tr.Snapshot()
	assert.InDelta(t, 0.18, amp, 1e-9)

	tr.Tick()
	amp, _ = tr.Snapshot()
	assert.InDelta(t, 0.18+0.82*0.18, amp, 1e-9)
}

func TestTrackerPhaseAccrual(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	_, phase := tr.Snapshot()
	require.Equal(t, 0.0, phase)

	for i := 1; i <= 5; i++ {
		tr.Tick()
		_, phase = tr.Snapshot()
		assert.InDelta(t, 0.35*float64(i), phase, 1e-9)
	}

	// Phase accrues with or without audio activity.
	tr.FeedAudio(maxPCM(8))
	tr.Tick()
	_, phase = tr.Snapshot()
	assert.InDelta(t, 0.35*6, phase, 1e-9)
}

func TestTrackerIdleFloor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(pcmFromSamples([]int16{0, 0, 0, 0}))
	clock.Advance(300 * time.Millisecond)

	tr.Tick()

	// phase was 0 during the idle computation of the first tick.
	idle := 0.06 * (0.6 + 0.4*math.Sin(0))
	amp, _ := tr.Snapshot()
	assert.GreaterOrEqual(t, amp, idle)
	assert.InDelta(t, idle, amp, 1e-9)
}

func TestTrackerIdleFloorNeverLowersActiveSignal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(maxPCM(8))
	tr.Tick() // current = 0.18, well above the idle floor

	clock.Advance(time.Second)
	tr.Tick()

	amp, _ := tr.Snapshot()
	assert.Greater(t, amp, 0.06)
}

func TestTrackerIdleTargetDecay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(maxPCM(8))
	clock.Advance(time.Second)
	tr.Tick()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.InDelta(t, 0.96, tr.target, 1e-9)
}

func TestTrackerNotIdleWithinThreshold(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, nil)

	tr.FeedAudio(maxPCM(8))
	clock.Advance(200 * time.Millisecond)
	tr.Tick()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.InDelta(t, 1.0, tr.target, 1e-9)
}

func TestTrackerSinkReceivesUpdates(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &HeadlessSink{}
	tr := NewTracker(clock, sink)

	tr.FeedAudio(maxPCM(8))
	tr.Tick()

	assert.InDelta(t, 0.18, sink.Last(), 1e-9)
}

func TestTrackerClose(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &HeadlessSink{}
	tr := NewTracker(clock, sink)

	tr.FeedAudio(maxPCM(8))
	tr.Close()
	tr.Close() // idempotent

	tr.Tick()
	tr.FeedAudio(maxPCM(8))

	amp, phase := tr.Snapshot()
	assert.Equal(t, 0.0, amp)
	assert.Equal(t, 0.0, phase)
}
