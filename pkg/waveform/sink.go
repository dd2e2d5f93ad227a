package waveform

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Sink receives the smoothed amplitude once per tick. Implementations must
// not block; Update is called from the tracker's tick path.
type Sink interface {
	Update(amplitude float64)
	Stop()
}

// NewSink selects the sink variant once at construction time. Headless mode
// tracks values without rendering anything locally; otherwise a terminal
// meter is drawn on w.
func NewSink(headless bool, w io.Writer) Sink {
	if headless {
		return &HeadlessSink{}
	}
	return &RenderingSink{w: w, width: 40}
}

// HeadlessSink tracks the latest amplitude without rendering.
type HeadlessSink struct {
	mu      sync.Mutex
	last    float64
	stopped bool
}

func (s *HeadlessSink) Update(amplitude float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.last = amplitude
}

func (s *HeadlessSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Last returns the most recent amplitude passed to Update.
func (s *HeadlessSink) Last() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RenderingSink draws a single-line amplitude meter on a writer.
type RenderingSink struct {
	w       io.Writer
	width   int
	mu      sync.Mutex
	stopped bool
}

func (s *RenderingSink) Update(amplitude float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.w == nil {
		return
	}

	level := amplitude
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * float64(s.width))
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", s.width-filled)
	fmt.Fprintf(s.w, "\r[%s] %.3f", bar, amplitude)
}

func (s *RenderingSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.w != nil {
		fmt.Fprintln(s.w)
	}
}
