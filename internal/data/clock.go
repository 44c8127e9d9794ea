package data

import "time"

// Clock supplies the current instant to the data layer.
//
// Dismissal is a time-relative predicate ("is dismissed now"), computed
// lazily against the current clock rather than with timers. Injecting the
// clock lets tests simulate elapsed time deterministically instead of
// sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
