package motion

import "time"

// FramesPerSecond is the MMD motion frame rate.
const FramesPerSecond = 30

// Clock turns elapsed wall-clock time into a looping frame number.
type Clock struct {
	start    time.Time
	duration uint32
	fps      float64
}

// NewClock creates a clock for a motion of the given length in frames.
// fps <= 0 selects FramesPerSecond.
func NewClock(duration uint32, fps int) *Clock {
	if fps <= 0 {
		fps = FramesPerSecond
	}
	return &Clock{duration: duration, fps: float64(fps)}
}

// Start restarts playback at now.
func (c *Clock) Start(now time.Time) {
	c.start = now
}

// Frame returns the frame for now. A clock that was never started starts at
// now. Once the frame passes the duration the clock restarts at now and
// returns frame 0.
func (c *Clock) Frame(now time.Time) uint32 {
	if c.start.IsZero() {
		c.start = now
	}
	elapsed := now.Sub(c.start)
	if elapsed < 0 {
		elapsed = 0
	}
	frames := elapsed.Seconds() * c.fps
	if frames >= float64(c.duration)+1 {
		c.start = now
		return 0
	}
	return uint32(frames)
}

// Duration returns the loop length in frames.
func (c *Clock) Duration() uint32 {
	return c.duration
}
