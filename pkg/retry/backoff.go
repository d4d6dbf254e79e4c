package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) backoff.BackOff {
	return ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, 0, multiplier)
}

// ExponentialBackoffWithMaxElapsed returns a jittered exponential backoff.
// Zero values fall back to the backoff package defaults; maxElapsed 0 means
// no elapsed-time cap.
func ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if initialInterval > 0 {
		exp.InitialInterval = initialInterval
	}
	if maxInterval > 0 {
		exp.MaxInterval = maxInterval
	}
	if multiplier > 0 {
		exp.Multiplier = multiplier
	}
	exp.MaxElapsedTime = maxElapsed
	exp.Reset()
	return exp
}
