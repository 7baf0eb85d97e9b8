package prefs

import "time"

// MetricsRecorder observes store activity. Implementations must be safe for
// concurrent use.
type MetricsRecorder interface {
	// RecordRead counts a lookup of one key and whether it hit the cache
	RecordRead(store string, hit bool)
	// RecordCommit observes one commit of n changed keys
	RecordCommit(store string, n int, elapsed time.Duration, err error)
	// RecordDecodeError counts a stored value that could not be decoded
	RecordDecodeError(store string)
}

type noopMetrics struct{}

func (noopMetrics) RecordRead(string, bool)                        {}
func (noopMetrics) RecordCommit(string, int, time.Duration, error) {}
func (noopMetrics) RecordDecodeError(string)                       {}
