package checkin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/trip"
)

// Direction of a scan: entry when the student is boarding, exit when alighting.
type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

// TargetStatus maps a scan direction to the roster status it drives.
func (d Direction) TargetStatus() trip.StudentStatus {
	if d == DirectionExit {
		return trip.StudentDroppedOff
	}
	return trip.StudentPickedUp
}

// Outcome is the result of resolving one scanned tag. Wrong-student is a
// first-class outcome requiring operator acknowledgement, not an error.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeWrongStudent Outcome = "wrong-student"
	OutcomeUnrecognized Outcome = "unrecognized"
)

// Event is the timestamped record of one scan resolution.
type Event struct {
	TagID        string    `json:"tag_id"`
	StudentID    uint      `json:"student_id,omitempty"`
	StudentName  string    `json:"student_name,omitempty"`
	ExpectedID   uint      `json:"expected_id,omitempty"`
	ExpectedName string    `json:"expected_name,omitempty"`
	Direction    Direction `json:"direction"`
	Outcome      Outcome   `json:"outcome"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Latitude     float64   `json:"latitude,omitempty"`
	Longitude    float64   `json:"longitude,omitempty"`
	ManualEntry  bool      `json:"manual_entry,omitempty"`
}

// StudentRef is the registry's answer to a tag lookup.
type StudentRef struct {
	ID   uint
	Name string
}

// TagRegistry resolves an RFID tag identifier to a student. Implementations
// return (nil, nil) for an unknown tag and an error only for lookup failures.
type TagRegistry interface {
	LookupStudentByTag(ctx context.Context, tagID string) (*StudentRef, error)
}

// EventRecorder persists events fire-and-forget. A recording failure must not
// block the scan flow.
type EventRecorder interface {
	RecordCheckInEvent(event Event)
}

// Matcher matches scanned tags against the expected scan order of the active
// trip's roster. Calls are serialized: a second scan waits until the prior
// scan's resolution lands, so status transitions never race on the roster.
type Matcher struct {
	mu       sync.Mutex
	registry TagRegistry
	recorder EventRecorder
	now      func() time.Time
}

func NewMatcher(registry TagRegistry, recorder EventRecorder) *Matcher {
	return &Matcher{registry: registry, recorder: recorder, now: time.Now}
}

// Process resolves tagID against the roster and returns exactly one of the
// three outcomes. A failed registry lookup surfaces as unrecognized with a
// descriptive message rather than an error, so the caller can always render
// an outcome.
func (m *Matcher) Process(ctx context.Context, tagID string, direction Direction, roster []trip.ActiveTripStudent) Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := Event{
		TagID:     tagID,
		Direction: direction,
		Timestamp: m.now(),
	}

	resolved, err := m.registry.LookupStudentByTag(ctx, tagID)
	if err != nil {
		logrus.WithError(err).WithField("tag_id", tagID).Warn("Tag lookup failed.")
		event.Outcome = OutcomeUnrecognized
		event.Message = fmt.Sprintf("Could not look up tag %s: %v", tagID, err)
		m.record(event)
		return event
	}
	if resolved == nil {
		event.Outcome = OutcomeUnrecognized
		event.Message = fmt.Sprintf("Tag %s is not registered to any student", tagID)
		m.record(event)
		return event
	}
	event.StudentID = resolved.ID
	event.StudentName = resolved.Name

	expected := ExpectedStudent(roster, direction)
	if expected == nil {
		event.Outcome = OutcomeWrongStudent
		event.Message = noExpectedMessage(direction)
		m.record(event)
		return event
	}
	event.ExpectedID = expected.ID
	event.ExpectedName = expected.Name

	if resolved.ID != expected.ID {
		event.Outcome = OutcomeWrongStudent
		event.Message = fmt.Sprintf("Scanned %s but expected %s next", resolved.Name, expected.Name)
		m.record(event)
		return event
	}

	event.Outcome = OutcomeAccepted
	if direction == DirectionEntry {
		event.Message = fmt.Sprintf("%s checked in", resolved.Name)
	} else {
		event.Message = fmt.Sprintf("%s checked out", resolved.Name)
	}
	m.record(event)
	return event
}

// ProcessEvent resolves one TagEvent, preserving its manual-entry marker on
// the emitted event.
func (m *Matcher) ProcessEvent(ctx context.Context, ev TagEvent, roster []trip.ActiveTripStudent) Event {
	event := m.Process(ctx, ev.TagID, ev.Direction, roster)
	event.ManualEntry = ev.Manual
	return event
}

// ExpectedStudent returns the next student in scan order: the lowest
// pickup-order student still pending (entry) or picked-up (exit). Equal
// pickup orders fall back to a stable sort by id.
func ExpectedStudent(roster []trip.ActiveTripStudent, direction Direction) *StudentRef {
	want := trip.StudentPending
	if direction == DirectionExit {
		want = trip.StudentPickedUp
	}

	candidates := make([]trip.ActiveTripStudent, 0, len(roster))
	for _, s := range roster {
		if s.Status == want {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PickupOrder != candidates[j].PickupOrder {
			return candidates[i].PickupOrder < candidates[j].PickupOrder
		}
		return candidates[i].ID < candidates[j].ID
	})
	return &StudentRef{ID: candidates[0].ID, Name: candidates[0].Name}
}

func noExpectedMessage(direction Direction) string {
	if direction == DirectionExit {
		return "No student is waiting to check out"
	}
	return "No student is waiting to check in"
}

func (m *Matcher) record(event Event) {
	if m.recorder == nil {
		return
	}
	go m.recorder.RecordCheckInEvent(event)
}
