package geofence

import (
	"context"
	"sync"
	"time"
)

// ReportedSource is a LocationSource fed by fixes the minder device reports
// over its own channels: the initial coordinates on a start request and every
// location frame pushed on the websocket. The verifier's freshness window
// still applies, so a stale cached fix fails the check rather than passing it.
type ReportedSource struct {
	mu     sync.RWMutex
	last   Sample
	hasFix bool
}

func NewReportedSource() *ReportedSource {
	return &ReportedSource{}
}

// Report records the latest device fix. A zero timestamp is stamped with the
// current time.
func (s *ReportedSource) Report(sample Sample) {
	if s == nil {
		return
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.last = sample
	s.hasFix = true
	s.mu.Unlock()
}

// Sample returns the most recent reported fix, or ErrLocationUnavailable when
// the device has not reported one yet.
func (s *ReportedSource) Sample(ctx context.Context) (Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasFix {
		return Sample{}, ErrLocationUnavailable
	}
	return s.last, nil
}
