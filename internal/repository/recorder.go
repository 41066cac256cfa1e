package repository

import (
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shule_transit/internal/checkin"
	"shule_transit/internal/metrics"
	"shule_transit/internal/models"
	"shule_transit/internal/publisher"
)

// CheckInRecorder persists scan resolutions and fans them out. It is called
// fire-and-forget: by the time it runs, the roster transition has already
// been applied locally, so a failure here is logged and never surfaced to
// the scan flow.
type CheckInRecorder struct {
	db      *gorm.DB
	nats    *publisher.NATSPublisher
	metrics *metrics.Collector
	tripID  func() string
}

// NewCheckInRecorder wires the recorder. tripID supplies the current trip
// identity at record time (the event itself does not carry it); nats and
// metrics may be nil.
func NewCheckInRecorder(db *gorm.DB, nats *publisher.NATSPublisher, m *metrics.Collector, tripID func() string) *CheckInRecorder {
	return &CheckInRecorder{db: db, nats: nats, metrics: m, tripID: tripID}
}

func (r *CheckInRecorder) RecordCheckInEvent(event checkin.Event) {
	r.metrics.ScanOutcomeInc(string(event.Outcome))
	r.nats.PublishCheckIn(event)

	record := models.CheckInRecord{
		TripID:      r.tripID(),
		TagID:       event.TagID,
		StudentID:   event.StudentID,
		Direction:   string(event.Direction),
		Outcome:     string(event.Outcome),
		Message:     event.Message,
		Latitude:    event.Latitude,
		Longitude:   event.Longitude,
		ManualEntry: event.ManualEntry,
		ScannedAt:   event.Timestamp,
	}
	if err := r.db.Create(&record).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"tag_id":  event.TagID,
			"outcome": event.Outcome,
		}).Warn("Could not persist check-in event.")
	}
}
