package util

import "time"

// Stopwatch measures elapsed time against a monotonic start point.
type Stopwatch struct {
	start time.Time
}

func NewStopwatch() *Stopwatch {
	return &Stopwatch{start: time.Now()}
}

func (s *Stopwatch) Reset() {
	s.start = time.Now()
}

// ElapsedMilliseconds returns the elapsed time in fractional milliseconds.
func (s *Stopwatch) ElapsedMilliseconds() float64 {
	return float64(time.Since(s.start)) / float64(time.Millisecond)
}

func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// MonotonicMillis returns a monotonic millisecond timestamp for pong replies
// and latency math. Not related to wall-clock time.
var processStart = time.Now()

func MonotonicMillis() int64 {
	return time.Since(processStart).Milliseconds()
}
