package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shule_transit/internal/geo"
	"shule_transit/internal/geofence"
	"shule_transit/internal/metrics"
	"shule_transit/internal/middleware"
	"shule_transit/internal/models"
	"shule_transit/internal/trip"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// LocationData is the incoming JSON from the minder device's location push.
type LocationData struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // GPS accuracy in meters
	Speed     float64   `json:"speed"`    // Speed in m/s
	Bearing   float64   `json:"bearing"`  // Direction in degrees
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON tolerates timestamps without a timezone suffix by assuming
// UTC, which mobile clients frequently send.
func (ld *LocationData) UnmarshalJSON(data []byte) error {
	type alias LocationData
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*alias
	}{alias: (*alias)(ld)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	ts := aux.Timestamp
	if ts == "" {
		ld.Timestamp = time.Now().UTC()
		return nil
	}
	if !(strings.HasSuffix(ts, "Z") || (len(ts) >= 6 && strings.ContainsAny(ts[len(ts)-6:], "+-"))) {
		ts += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", aux.Timestamp, err)
	}
	ld.Timestamp = t
	return nil
}

// trackingMessage is one frame pushed to viewers. Kind "subscribed" carries
// the tracked student's statuses; "location" carries one sample.
type trackingMessage struct {
	Kind          string         `json:"kind"`
	PickupStatus  string         `json:"pickup_status,omitempty"`
	DropoffStatus string         `json:"dropoff_status,omitempty"`
	Location      map[string]any `json:"location,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// TrackingHub fans location updates out to parent viewers, keyed by trip id.
type TrackingHub struct {
	viewers   map[string]map[*websocket.Conn]bool
	broadcast chan broadcastItem
	metrics   *metrics.Collector
	mu        sync.Mutex
}

type broadcastItem struct {
	tripID string
	msg    trackingMessage
}

func NewTrackingHub(m *metrics.Collector) *TrackingHub {
	hub := &TrackingHub{
		viewers:   make(map[string]map[*websocket.Conn]bool),
		broadcast: make(chan broadcastItem, 100),
		metrics:   m,
	}
	go hub.run()
	return hub
}

func (h *TrackingHub) run() {
	for item := range h.broadcast {
		h.mu.Lock()
		conns, exists := h.viewers[item.tripID]
		if !exists {
			h.mu.Unlock()
			continue
		}
		for conn := range conns {
			if err := conn.WriteJSON(item.msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logrus.WithField("trip_id", item.tripID).Info("Viewer closed during broadcast, unregistering.")
				} else {
					logrus.WithError(err).WithField("trip_id", item.tripID).Warn("Failed to send tracking message to viewer.")
				}
				delete(conns, conn)
				conn.Close()
			}
		}
		if len(conns) == 0 {
			delete(h.viewers, item.tripID)
		}
		h.mu.Unlock()
	}
}

func (h *TrackingHub) Register(tripID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[tripID]; !ok {
		h.viewers[tripID] = make(map[*websocket.Conn]bool)
	}
	h.viewers[tripID][conn] = true
	if h.metrics != nil {
		h.metrics.TrackingClients.Inc()
	}
	logrus.WithField("trip_id", tripID).Info("Viewer registered with TrackingHub.")
}

func (h *TrackingHub) Unregister(tripID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.viewers[tripID]; ok {
		if conns[conn] {
			delete(conns, conn)
			if h.metrics != nil {
				h.metrics.TrackingClients.Dec()
			}
		}
		if len(conns) == 0 {
			delete(h.viewers, tripID)
		}
	}
	logrus.WithField("trip_id", tripID).Info("Viewer unregistered from TrackingHub.")
}

// Publish queues a tracking message; a full queue drops the message rather
// than blocking the sender.
func (h *TrackingHub) Publish(tripID string, msg trackingMessage) {
	select {
	case h.broadcast <- broadcastItem{tripID: tripID, msg: msg}:
	default:
		logrus.Warn("Tracking broadcast channel full, dropping message.")
	}
}

// WebSocketController serves both sides of the tracking channel: the minder
// device pushing samples and parent viewers consuming them by token.
type WebSocketController struct {
	DB        *gorm.DB
	Lifecycle *trip.Lifecycle
	Hub       *TrackingHub
	Metrics   *metrics.Collector
	Locations *geofence.ReportedSource
}

// HandleMinderWebSocket receives the minder device's location pushes for the
// active trip. Authenticated with the minder's JWT in the token query param.
// @Summary Minder location push channel
// @Router /ws/location [get]
// @Tags WebSocket
// @Param token query string true "JWT token for authentication"
func (wc *WebSocketController) HandleMinderWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}
	token, err := middleware.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	logrus.Info("Minder WebSocket connection established.")
	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Info("Minder WebSocket closed.")
			} else {
				logrus.WithError(err).Error("Error reading minder WebSocket message.")
			}
			break
		}
		if messageType == websocket.TextMessage {
			wc.processMinderLocation(conn, p)
		}
	}
}

// processMinderLocation applies the significance filter, persists and
// broadcasts one pushed sample, and keeps the lifecycle's current location
// fresh.
func (wc *WebSocketController) processMinderLocation(conn *websocket.Conn, p []byte) {
	var locData LocationData
	if err := json.Unmarshal(p, &locData); err != nil {
		logrus.WithError(err).WithField("payload", string(p)).Error("Error unmarshaling location data.")
		conn.WriteJSON(gin.H{"error": "Invalid location data format. Check timestamp format."})
		return
	}

	// Every well-formed fix refreshes the geofence location cache, even ones
	// the significance filter later drops.
	accuracy := locData.Accuracy
	wc.Locations.Report(geofence.Sample{
		Latitude:  locData.Latitude,
		Longitude: locData.Longitude,
		Accuracy:  &accuracy,
		Timestamp: locData.Timestamp,
	})

	active, ok := wc.Lifecycle.Active()
	if !ok {
		conn.WriteJSON(gin.H{"error": "No active trip to attach location to."})
		return
	}

	var lastLocation models.LocationHistory
	err := wc.DB.Where("trip_id = ?", active.ID).Order("created_at desc").First(&lastLocation).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithError(err).Error("Database error fetching last location.")
		conn.WriteJSON(gin.H{"error": "Database error fetching last location."})
		return
	}

	distance := 0.0
	bearing := locData.Bearing
	if lastLocation.ID != 0 {
		distance = geo.DistanceMeters(lastLocation.Latitude, lastLocation.Longitude, locData.Latitude, locData.Longitude)
		bearing = geo.Bearing(lastLocation.Latitude, lastLocation.Longitude, locData.Latitude, locData.Longitude)
	}
	speed := locData.Speed
	if speed < 0 {
		speed = 0
	}
	timeDiff := locData.Timestamp.Sub(lastLocation.Timestamp).Seconds()

	isSignificant, eventType := shouldSaveLocation(distance, speed, timeDiff, lastLocation)
	if !isSignificant {
		if wc.Metrics != nil {
			wc.Metrics.SamplesDropped.Inc()
		}
		conn.WriteMessage(websocket.TextMessage, []byte("Location received - no significant change"))
		return
	}

	wc.Lifecycle.UpdateLocation(locData.Latitude, locData.Longitude)

	record := models.LocationHistory{
		TripID:           active.ID,
		BusID:            active.BusID,
		Latitude:         locData.Latitude,
		Longitude:        locData.Longitude,
		Accuracy:         locData.Accuracy,
		Speed:            speed,
		Bearing:          bearing,
		IsMoving:         speed > 0.5,
		DistanceFromLast: distance,
		Timestamp:        locData.Timestamp,
		EventType:        eventType,
	}
	if err := wc.DB.Create(&record).Error; err != nil {
		logrus.WithError(err).Error("Failed to save location.")
		conn.WriteJSON(gin.H{"error": "Failed to save location."})
		return
	}
	if wc.Metrics != nil {
		wc.Metrics.SamplesAccepted.Inc()
	}

	conn.WriteJSON(gin.H{
		"status":      "saved",
		"event_type":  eventType,
		"distance":    distance,
		"sequence_id": record.ID,
	})

	wc.Hub.Publish(active.ID, trackingMessage{
		Kind: "location",
		Location: map[string]any{
			"sequence_id": record.ID,
			"trip_id":     active.ID,
			"latitude":    locData.Latitude,
			"longitude":   locData.Longitude,
			"speed":       speed,
			"heading":     bearing,
			"accuracy":    locData.Accuracy,
			"timestamp":   locData.Timestamp.Format(time.RFC3339Nano),
		},
	})
	logrus.WithFields(logrus.Fields{
		"trip_id":     active.ID,
		"event_type":  eventType,
		"distance_m":  fmt.Sprintf("%.2f", distance),
		"speed_mps":   fmt.Sprintf("%.2f", speed),
		"sequence_id": record.ID,
	}).Debug("Location saved and published to viewers.")
}

// HandleTrackingWebSocket serves a parent viewer identified by a shareable
// tracking token. The subscription ack carries the tracked student's current
// statuses so stale viewer state is overwritten.
// @Summary Parent tracking channel
// @Router /ws/track [get]
// @Tags WebSocket
// @Param token query string true "Tracking token from the shared link"
func (wc *WebSocketController) HandleTrackingWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing tracking token"})
		return
	}

	var tok models.TrackingToken
	if err := wc.DB.Where("token = ?", tokenString).First(&tok).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tracking token"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error resolving token"})
		}
		return
	}
	if !tok.ExpiresAt.IsZero() && time.Now().After(tok.ExpiresAt) {
		c.JSON(http.StatusGone, gin.H{"error": "tracking token expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	wc.Hub.Register(tok.TripID, conn)
	defer wc.Hub.Unregister(tok.TripID, conn)

	// Subscription ack with the authoritative statuses.
	pickup, dropoff := "pending", "pending"
	if active, ok := wc.Lifecycle.Active(); ok && active.ID == tok.TripID {
		for _, st := range active.Students {
			if st.ID == tok.StudentID {
				switch st.Status {
				case trip.StudentPickedUp:
					pickup = "picked-up"
				case trip.StudentDroppedOff:
					pickup, dropoff = "picked-up", "dropped-off"
				}
				break
			}
		}
	}
	conn.WriteJSON(trackingMessage{Kind: "subscribed", PickupStatus: pickup, DropoffStatus: dropoff})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("trip_id", tok.TripID).Info("Tracking WebSocket closed.")
			} else {
				logrus.WithError(err).WithField("trip_id", tok.TripID).Error("Error reading tracking WebSocket message.")
			}
			break
		}
		logrus.WithField("trip_id", tok.TripID).Warn("Viewer sent unexpected message. Ignoring.")
	}
}

// shouldSaveLocation decides if a location update is significant enough to
// persist and broadcast: meaningful movement, a stop/start edge, or a
// periodic keepalive.
func shouldSaveLocation(distance, speed, timeDiff float64, lastLocation models.LocationHistory) (bool, string) {
	const minDistanceForSave = 5.0
	const minTimeDiffForSave = 10.0
	const minSpeedForMoving = 0.5
	const maxSpeedForStopped = 1.0

	if lastLocation.ID == 0 {
		return true, "initial"
	}

	if distance >= minDistanceForSave {
		return true, "move"
	}

	if lastLocation.IsMoving && speed < maxSpeedForStopped && timeDiff >= minTimeDiffForSave {
		return true, "stopped"
	}

	if !lastLocation.IsMoving && speed >= minSpeedForMoving && timeDiff >= minTimeDiffForSave {
		return true, "started"
	}

	const periodicSaveInterval = 60 * time.Second
	if time.Since(lastLocation.Timestamp) >= periodicSaveInterval {
		return true, "periodic"
	}

	return false, "insignificant"
}
