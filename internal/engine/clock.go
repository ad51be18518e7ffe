package engine

import "time"

// Clock stamps result metadata. It exists so backtests can produce fully
// reproducible results; bar processing never consults it.
type Clock interface {
	Now() time.Time
}

// WallClock is the real clock.
type WallClock struct{}

func (WallClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}
