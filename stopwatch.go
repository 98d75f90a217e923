package modbus

import "time"

// Stopwatch measures elapsed time from a start mark. time.Time carries a
// monotonic reading, so wall clock changes do not affect it.
type Stopwatch struct {
	start time.Time
}

func StartStopwatch() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// ElapsedMilliseconds returns whole milliseconds since the mark.
func (s Stopwatch) ElapsedMilliseconds() uint64 {
	return uint64(time.Since(s.start).Milliseconds())
}
