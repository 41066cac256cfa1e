package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/checkin"
	"shule_transit/internal/trip"
)

// NATSPublisher fans trip and check-in events out to interested services
// (notifications, archival). All methods are nil-safe so the publisher can
// be absent in deployments without a broker.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("shule-transit"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			logrus.Warn("NATS disconnected.")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logrus.Info("NATS reconnected.")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Drain()
	p.nc.Close()
}

// TripEventMessage announces a lifecycle change for one trip.
type TripEventMessage struct {
	Event     string    `json:"event"` // "started" or "completed"
	TripID    string    `json:"trip_id"`
	RouteID   uint      `json:"route_id"`
	BusID     uint      `json:"bus_id"`
	Students  int       `json:"students"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishTripEvent publishes to trips.<event>.<route>. Failures are logged
// and swallowed; event fan-out never blocks the trip flow.
func (p *NATSPublisher) PublishTripEvent(event string, t trip.ActiveTrip) {
	if p == nil || p.nc == nil {
		return
	}
	msg := TripEventMessage{
		Event:     event,
		TripID:    t.ID,
		RouteID:   t.RouteID,
		BusID:     t.BusID,
		Students:  len(t.Students),
		Timestamp: time.Now(),
	}
	p.publish(fmt.Sprintf("trips.%s.%d", event, t.RouteID), msg)
}

// PublishCheckIn publishes one scan resolution to checkins.<outcome>.
func (p *NATSPublisher) PublishCheckIn(event checkin.Event) {
	if p == nil || p.nc == nil {
		return
	}
	p.publish(fmt.Sprintf("checkins.%s", subjectToken(string(event.Outcome))), event)
}

func (p *NATSPublisher) publish(subject string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).WithField("subject", subject).Error("Could not marshal event.")
		return
	}
	if err := p.nc.Publish(subject, b); err != nil {
		logrus.WithError(err).WithField("subject", subject).Warn("Could not publish event.")
	}
}

// subjectToken makes a value safe for use inside a NATS subject.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '-'
		}
		return r
	}, s)
}
