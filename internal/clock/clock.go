// Package clock abstracts wall-clock reads and sleeps so the worker loops
// and pipelines can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the station uses.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now().UTC() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
