package main

import (
	"log"
	"net/http"

	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/checkin"
	"shule_transit/internal/config"
	"shule_transit/internal/controllers"
	"shule_transit/internal/geofence"
	"shule_transit/internal/logger"
	"shule_transit/internal/metrics"
	"shule_transit/internal/middleware"
	"shule_transit/internal/publisher"
	"shule_transit/internal/repository"
	"shule_transit/internal/routes"
	"shule_transit/internal/store"
	"shule_transit/internal/trip"
)

func main() {
	// Structured logging to stdout and rotating file
	logger.Setup()

	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database and run migrations
	config.InitDB()
	db := config.DB

	// Local store that carries the in-progress trip across restarts
	tripStore, err := store.NewFileStore(cfg.TripStoreDir)
	if err != nil {
		log.Fatalf("could not open trip store at %s: %v", cfg.TripStoreDir, err)
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	// Optional event fan-out; everything downstream is nil-safe without it
	var nats *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		nats, err = publisher.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logrus.WithError(err).Warn("NATS unavailable, continuing without event fan-out.")
			nats = nil
		} else {
			defer nats.Close()
		}
	}

	// Geofence gate fed by the minder device's own location reports
	deviceLocations := geofence.NewReportedSource()
	verifier := geofence.NewVerifier(deviceLocations, repository.NewZoneStore(db))

	lifecycle := trip.NewLifecycle(tripStore, verifier, repository.NewRosterSource(db), collector)

	recorder := repository.NewCheckInRecorder(db, nats, collector, func() string {
		if active, ok := lifecycle.Active(); ok {
			return active.ID
		}
		return ""
	})
	matcher := checkin.NewMatcher(repository.NewTagRegistry(db), recorder)

	hub := controllers.NewTrackingHub(collector)

	r := routes.SetupRouter(routes.Controllers{
		Trip: &controllers.TripController{
			DB:        db,
			Lifecycle: lifecycle,
			Matcher:   matcher,
			Nats:      nats,
			Locations: deviceLocations,
			TokenTTL:  cfg.TrackingTokenTTL,
		},
		Geofence: &controllers.GeofenceController{Verifier: verifier},
		WS: &controllers.WebSocketController{
			DB:        db,
			Lifecycle: lifecycle,
			Hub:       hub,
			Metrics:   collector,
			Locations: deviceLocations,
		},
		Tracking: &controllers.TrackingController{
			Snapshots: repository.NewSnapshotSource(db, lifecycle),
		},
		Metrics: collector,
	})

	handler := middleware.EnableCORS(r)

	logrus.WithField("addr", cfg.ListenAddr).Info("Server listening.")
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, handler))
}
