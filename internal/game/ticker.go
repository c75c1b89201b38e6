package game

import "time"

// Ticker is a cancellable countdown source. Wraps time.Ticker so tests can
// substitute a manually driven channel.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds the one-per-room round ticker.
type TickerFactory interface {
	NewTicker(d time.Duration) Ticker
}

// WallClock is the production TickerFactory.
type WallClock struct{}

func (WallClock) NewTicker(d time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(d)}
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }
