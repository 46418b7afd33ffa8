package retry

import "time"

// ExponentialBackoff returns the delay to wait before retrying a failed
// attempt. The delay doubles with each retry: base * 2^attempt.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}
