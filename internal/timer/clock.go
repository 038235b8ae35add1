package timer

import "time"

// Ticker is the subset of time.Ticker a caller needs; VirtualTicker
// implements the same shape without a real OS timer underneath.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is everything this module's timing-dependent components need from
// wall-clock time: the current instant, a one-shot delay channel, and a
// repeating ticker.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// SystemClock is the real wall clock, backed directly by the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time                        { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (SystemClock) NewTicker(d time.Duration) Ticker       { return systemTicker{time.NewTicker(d)} }

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }
