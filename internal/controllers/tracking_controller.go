package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/repository"
)

// TrackingController serves the pull side of trip tracking: the one-shot
// snapshot a viewer loads before (or instead of) subscribing to the live
// websocket channel.
type TrackingController struct {
	Snapshots *repository.SnapshotSource
}

// GetTripSnapshot returns the last known location, recent history and
// student statuses for the trip behind a tracking token.
func (tc *TrackingController) GetTripSnapshot(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing tracking token"})
		return
	}

	snap, err := tc.Snapshots.FetchTripSnapshot(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			c.JSON(http.StatusGone, gin.H{"error": "tracking link invalid or expired"})
			return
		}
		logrus.WithError(err).Error("Failed to build trip snapshot.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load trip snapshot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshot": snap})
}
