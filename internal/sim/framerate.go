package sim

import (
	"math"
	"time"
)

// FrameSample summarizes frame times over one sample window.
type FrameSample struct {
	Frames   int
	Duration time.Duration
	Best     time.Duration // Shortest frame
	Worst    time.Duration // Longest frame
}

// FPS returns the average frame rate over the window.
func (s FrameSample) FPS() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Duration.Seconds()
}

// BestFPS returns the rate implied by the shortest frame.
func (s FrameSample) BestFPS() float64 {
	return rate(s.Best)
}

// WorstFPS returns the rate implied by the longest frame.
func (s FrameSample) WorstFPS() float64 {
	return rate(s.Worst)
}

func rate(d time.Duration) float64 {
	if d <= 0 {
		return math.Inf(1)
	}
	return 1 / d.Seconds()
}

// FrameCounter accumulates frame durations and closes a sample once the
// window has elapsed.
type FrameCounter struct {
	window time.Duration
	cur    FrameSample
}

// NewFrameCounter returns a counter with the given sample window.
func NewFrameCounter(window time.Duration) *FrameCounter {
	c := &FrameCounter{window: window}
	c.reset()
	return c
}

func (c *FrameCounter) reset() {
	c.cur = FrameSample{Best: time.Duration(math.MaxInt64)}
}

// Add records one frame. When the window is complete it returns the sample
// and starts a new one.
func (c *FrameCounter) Add(frame time.Duration) (FrameSample, bool) {
	c.cur.Frames++
	c.cur.Duration += frame
	if frame < c.cur.Best {
		c.cur.Best = frame
	}
	if frame > c.cur.Worst {
		c.cur.Worst = frame
	}

	if c.cur.Duration < c.window {
		return FrameSample{}, false
	}
	s := c.cur
	c.reset()
	return s, true
}
