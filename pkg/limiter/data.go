package limiter

import "time"

// per-host pacing state
type hostTiming struct {
	lastFetchAt  time.Time
	backoffDelay time.Duration
	hostDelay    time.Duration
	backoffCount int
}

func (h hostTiming) HostDelay() time.Duration {
	return h.hostDelay
}

func (h hostTiming) BackoffDelay() time.Duration {
	return h.backoffDelay
}

func (h hostTiming) LastFetchAt() time.Time {
	return h.lastFetchAt
}

func (h hostTiming) BackoffCount() int {
	return h.backoffCount
}
