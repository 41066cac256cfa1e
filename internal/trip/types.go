package trip

import "time"

// TripStatus is the lifecycle state of an active trip.
type TripStatus string

const (
	StatusActive    TripStatus = "active"
	StatusPaused    TripStatus = "paused" // reserved; no transitions drive it yet
	StatusCompleted TripStatus = "completed"
)

// StudentStatus tracks a student through a trip. Transitions are strictly
// forward: pending -> picked-up -> dropped-off.
type StudentStatus string

const (
	StudentPending    StudentStatus = "pending"
	StudentPickedUp   StudentStatus = "picked-up"
	StudentDroppedOff StudentStatus = "dropped-off"
)

// rank orders statuses so monotonicity checks are a single comparison.
func (s StudentStatus) rank() int {
	switch s {
	case StudentPending:
		return 0
	case StudentPickedUp:
		return 1
	case StudentDroppedOff:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is a legal forward step.
// Re-applying the current status is allowed (idempotent), regression is not.
func (s StudentStatus) CanAdvanceTo(next StudentStatus) bool {
	return next.rank() >= s.rank() && next.rank() >= 0 && s.rank() >= 0
}

// Location is a timestamped point attached to a trip or a check-in.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// ActiveTripStudent is one roster entry of the in-progress trip.
// PickupOrder defines the expected scan sequence on the route.
type ActiveTripStudent struct {
	ID           uint          `json:"id"`
	Name         string        `json:"name"`
	AdmissionNo  string        `json:"admission_no"`
	Status       StudentStatus `json:"status"`
	PickupOrder  int           `json:"pickup_order"`
	RFIDTag      string        `json:"rfid_tag,omitempty"`
	PickupTime   *time.Time    `json:"pickup_time,omitempty"`
	DropoffTime  *time.Time    `json:"dropoff_time,omitempty"`
	PickupPoint  *Location     `json:"pickup_point,omitempty"`
	DropoffPoint *Location     `json:"dropoff_point,omitempty"`

	// Profile fields carried for operator display only.
	Address     string `json:"address,omitempty"`
	ParentName  string `json:"parent_name,omitempty"`
	ParentPhone string `json:"parent_phone,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ActiveTrip is the single in-progress trip on a device. At most one exists
// at a time; it is owned exclusively by Lifecycle.
type ActiveTrip struct {
	ID              string              `json:"id"`
	BusRegistration string              `json:"bus_registration"`
	BusID           uint                `json:"bus_id"`
	MinderID        uint                `json:"minder_id"`
	RouteID         uint                `json:"route_id"`
	ZoneID          uint                `json:"zone_id"`
	StartTime       time.Time           `json:"start_time"`
	Status          TripStatus          `json:"status"`
	Students        []ActiveTripStudent `json:"students"`
	CurrentLocation *Location           `json:"current_location,omitempty"`
	EstimatedMins   int                 `json:"estimated_mins,omitempty"`
	ActualDuration  time.Duration       `json:"actual_duration,omitempty"`
}

// Stats is derived from the roster on demand and never stored.
type Stats struct {
	TotalStudents     int     `json:"total_students"`
	PickedUp          int     `json:"picked_up"`
	Remaining         int     `json:"remaining"`
	CompletionPercent float64 `json:"completion_percent"`
}

// ComputeStats derives aggregate progress from a roster. Picked-up counts both
// picked-up and dropped-off students, so PickedUp + Remaining always equals
// TotalStudents.
func ComputeStats(students []ActiveTripStudent) Stats {
	s := Stats{TotalStudents: len(students)}
	for _, st := range students {
		if st.Status == StudentPickedUp || st.Status == StudentDroppedOff {
			s.PickedUp++
		}
	}
	s.Remaining = s.TotalStudents - s.PickedUp
	if s.TotalStudents > 0 {
		s.CompletionPercent = float64(s.PickedUp) / float64(s.TotalStudents) * 100
	}
	return s
}
