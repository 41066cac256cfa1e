package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shule_transit/internal/checkin"
	"shule_transit/internal/geofence"
	"shule_transit/internal/models"
	"shule_transit/internal/publisher"
	"shule_transit/internal/trip"
)

// TripController exposes the minder-facing trip lifecycle: start/end, tag
// scans, stats and tracking-link creation. The lifecycle instance it wraps
// is the single owner of the in-progress trip.
type TripController struct {
	DB        *gorm.DB
	Lifecycle *trip.Lifecycle
	Matcher   *checkin.Matcher
	Nats      *publisher.NATSPublisher
	Locations *geofence.ReportedSource
	TokenTTL  time.Duration
}

// StartTrip begins a trip after the geofence gate passes.
func (tc *TripController) StartTrip(c *gin.Context) {
	var req trip.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body format: " + err.Error()})
		return
	}

	// The start request doubles as a location report, so the geofence gate
	// sees the fix the device just produced.
	if req.InitialLat != nil && req.InitialLon != nil {
		tc.Locations.Report(geofence.Sample{
			Latitude:  *req.InitialLat,
			Longitude: *req.InitialLon,
			Timestamp: time.Now(),
		})
	}

	started, err := tc.Lifecycle.StartTrip(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, trip.ErrTripAlreadyActive):
			c.JSON(http.StatusConflict, gin.H{"error": "A trip is already in progress. End it before starting another."})
		case errors.Is(err, trip.ErrOutsideZone):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "retryable": true})
		case errors.Is(err, geofence.ErrLocationUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not obtain a device location. Check location permissions and try again.", "retryable": true})
		case errors.Is(err, geofence.ErrZoneNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Zone not found."})
		default:
			logrus.WithError(err).Error("Failed to start trip.")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start trip."})
		}
		return
	}

	tc.Nats.PublishTripEvent("started", started)
	c.JSON(http.StatusCreated, gin.H{"trip": started})
}

// EndTrip completes the active trip and returns it for display/archival.
func (tc *TripController) EndTrip(c *gin.Context) {
	completed, err := tc.Lifecycle.EndTrip(c.Request.Context())
	if err != nil {
		if errors.Is(err, trip.ErrNoActiveTrip) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No trip is in progress."})
			return
		}
		logrus.WithError(err).Error("Failed to end trip.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end trip."})
		return
	}

	tc.Nats.PublishTripEvent("completed", completed)
	c.JSON(http.StatusOK, gin.H{
		"trip":  completed,
		"stats": trip.ComputeStats(completed.Students),
	})
}

// GetActiveTrip returns the current trip snapshot, if any.
func (tc *TripController) GetActiveTrip(c *gin.Context) {
	active, ok := tc.Lifecycle.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No trip is in progress."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": active})
}

// GetTripStats returns the derived progress counters.
func (tc *TripController) GetTripStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": tc.Lifecycle.Stats()})
}

type scanPayload struct {
	TagID     string  `json:"tag_id" binding:"required"`
	Manual    bool    `json:"manual"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Scan resolves one tag read against the roster and applies the transition
// on acceptance. The response always carries one of the three outcomes;
// wrong-student and unrecognized are rendered for operator acknowledgement,
// never as server errors.
func (tc *TripController) Scan(c *gin.Context) {
	var payload scanPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body format: " + err.Error()})
		return
	}

	active, ok := tc.Lifecycle.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No trip is in progress."})
		return
	}

	// Direction: entry while anyone is still pending, exit afterwards.
	direction := checkin.DirectionEntry
	if checkin.ExpectedStudent(active.Students, checkin.DirectionEntry) == nil {
		direction = checkin.DirectionExit
	}

	event := tc.Matcher.ProcessEvent(c.Request.Context(), checkin.TagEvent{
		TagID:     payload.TagID,
		Direction: direction,
		Manual:    payload.Manual,
	}, active.Students)
	event.Latitude = payload.Latitude
	event.Longitude = payload.Longitude

	if event.Outcome == checkin.OutcomeAccepted {
		if err := tc.Lifecycle.ApplyCheckIn(event.StudentID, direction.TargetStatus(), payload.Latitude, payload.Longitude, event.Timestamp); err != nil {
			logrus.WithError(err).WithField("student_id", event.StudentID).Error("Failed to apply accepted scan.")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan accepted but status update failed."})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"event": event,
		"stats": tc.Lifecycle.Stats(),
	})
}

type statusOverridePayload struct {
	Status string `json:"status" binding:"required"`
}

// OverrideStudentStatus lets the minder advance a student without a scan
// (lost card). The same monotonicity rules apply.
func (tc *TripController) OverrideStudentStatus(c *gin.Context) {
	studentIDStr := c.Param("studentId")
	studentID, err := strconv.ParseUint(studentIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID format."})
		return
	}

	var payload statusOverridePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body format: " + err.Error()})
		return
	}
	status := trip.StudentStatus(payload.Status)
	if status != trip.StudentPickedUp && status != trip.StudentDroppedOff {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be picked-up or dropped-off."})
		return
	}

	if err := tc.Lifecycle.UpdateStudentStatus(uint(studentID), status, nil); err != nil {
		switch {
		case errors.Is(err, trip.ErrNoActiveTrip):
			c.JSON(http.StatusNotFound, gin.H{"error": "No trip is in progress."})
		case errors.Is(err, trip.ErrUnknownStudent):
			c.JSON(http.StatusNotFound, gin.H{"error": "Student is not on this trip's roster."})
		case errors.Is(err, trip.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Status cannot move backwards."})
		default:
			logrus.WithError(err).Error("Failed to override student status.")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": tc.Lifecycle.Stats()})
}

type trackingLinkPayload struct {
	StudentID uint `json:"student_id" binding:"required"`
}

// CreateTrackingLink mints a shareable tracking token for one student on the
// active trip, for distribution to the parent.
func (tc *TripController) CreateTrackingLink(c *gin.Context) {
	var payload trackingLinkPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body format: " + err.Error()})
		return
	}

	active, ok := tc.Lifecycle.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No trip is in progress."})
		return
	}
	onRoster := false
	for _, st := range active.Students {
		if st.ID == payload.StudentID {
			onRoster = true
			break
		}
	}
	if !onRoster {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student is not on this trip's roster."})
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token."})
		return
	}
	token := models.TrackingToken{
		Token:     hex.EncodeToString(buf),
		TripID:    active.ID,
		StudentID: payload.StudentID,
		ExpiresAt: time.Now().Add(tc.TokenTTL),
	}
	if err := tc.DB.Create(&token).Error; err != nil {
		logrus.WithError(err).Error("Failed to save tracking token.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create tracking link."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token.Token,
		"trip_id":    token.TripID,
		"expires_at": token.ExpiresAt,
	})
}
