package spincube

import "time"

// Clock supplies frame timing to Run. Tick is called once per frame and
// returns the seconds since the previous tick and since the first one.
type Clock interface {
	Tick() (delta, elapsed float64)
}

// WallClock measures real time. The first tick reports zero for both values.
type WallClock struct {
	start time.Time
	last  time.Time
	now   func() time.Time
}

// NewWallClock returns a clock driven by time.Now.
func NewWallClock() *WallClock {
	return &WallClock{now: time.Now}
}

// Tick implements Clock.
func (c *WallClock) Tick() (delta, elapsed float64) {
	now := c.now()
	if c.start.IsZero() {
		c.start, c.last = now, now
		return 0, 0
	}
	delta = now.Sub(c.last).Seconds()
	elapsed = now.Sub(c.start).Seconds()
	c.last = now
	return delta, elapsed
}

// StepClock advances by a fixed step per tick, starting at zero. It makes
// headless runs and tests deterministic.
type StepClock struct {
	Step    float64
	elapsed float64
	ticks   int
}

// NewStepClock returns a clock advancing step seconds per tick.
func NewStepClock(step float64) *StepClock {
	return &StepClock{Step: step}
}

// Tick implements Clock.
func (c *StepClock) Tick() (delta, elapsed float64) {
	if c.ticks == 0 {
		c.ticks++
		return 0, 0
	}
	c.ticks++
	c.elapsed += c.Step
	return c.Step, c.elapsed
}
