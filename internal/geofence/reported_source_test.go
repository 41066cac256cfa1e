package geofence

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReportedSourceEmpty(t *testing.T) {
	s := NewReportedSource()
	_, err := s.Sample(context.Background())
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
}

func TestReportedSourceReturnsLatestFix(t *testing.T) {
	s := NewReportedSource()
	s.Report(Sample{Latitude: -1.28, Longitude: 36.82, Timestamp: time.Now()})
	s.Report(Sample{Latitude: -1.29, Longitude: 36.83, Timestamp: time.Now()})

	got, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Latitude != -1.29 || got.Longitude != 36.83 {
		t.Fatalf("expected latest fix, got %+v", got)
	}
}

func TestReportedSourceStampsZeroTimestamp(t *testing.T) {
	s := NewReportedSource()
	s.Report(Sample{Latitude: -1.28, Longitude: 36.82})

	got, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected a stamped timestamp")
	}
}
