package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shule_transit/internal/config"
	"shule_transit/internal/models"
)

// GetMinder retrieves a minder by ID.
func GetMinder(c *gin.Context) {
	id := c.Param("id")
	var minder models.Minder
	if err := config.DB.Preload("School").First(&minder, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "minder not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"minder": minder})
}

// ListMinders lists minders, optionally filtered by school_id.
func ListMinders(c *gin.Context) {
	query := config.DB
	if schoolID := c.Query("school_id"); schoolID != "" {
		query = query.Where("school_id = ?", schoolID)
	}

	var minders []models.Minder
	if err := query.Find(&minders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch minders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": minders})
}

// AssignMinderToBus gives a minder an operating bus. The bus must belong to
// the minder's school.
func AssignMinderToBus(c *gin.Context) {
	id := c.Param("id")
	var minder models.Minder
	if err := config.DB.First(&minder, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "minder not found"})
		return
	}

	var body struct {
		BusID uint `json:"bus_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var bus models.Bus
	if err := config.DB.First(&bus, body.BusID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bus not found"})
		return
	}
	if bus.SchoolID != minder.SchoolID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bus belongs to a different school"})
		return
	}

	minder.BusID = bus.ID
	bus.MinderID = minder.ID
	if err := config.DB.Save(&minder).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assign minder"})
		return
	}
	if err := config.DB.Save(&bus).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assign minder"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"minder": minder, "bus": bus})
}
