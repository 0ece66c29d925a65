// Package hosttime provides the monotonic host time domain shared by the
// scheduler, the clock input and the delivery queue.
package hosttime

import "time"

// base keeps every reading well above zero; zero means "unset" throughout the engine.
const base = time.Second

// Clock reports host time in nanoseconds.
type Clock interface {
	Now() int64
}

// Monotonic reads the process monotonic clock.
type Monotonic struct {
	epoch time.Time
}

// New starts a monotonic clock at the current instant.
func New() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// Now returns nanoseconds since the clock was created, offset by one second.
func (m *Monotonic) Now() int64 {
	return int64(base + time.Since(m.epoch))
}

// Until converts a host timestamp to a wall delay, which may be negative.
func Until(c Clock, at int64) time.Duration {
	return time.Duration(at - c.Now())
}
