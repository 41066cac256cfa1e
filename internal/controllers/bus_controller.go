package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shule_transit/internal/config"
	"shule_transit/internal/models"
)

// CreateBus registers a new bus under a school.
func CreateBus(c *gin.Context) {
	var input models.Bus
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := config.DB.Create(&input).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create bus: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bus": input})
}

// GetBus retrieves a bus by ID.
func GetBus(c *gin.Context) {
	id := c.Param("id")
	var bus models.Bus
	if err := config.DB.First(&bus, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bus not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bus": bus})
}

// ListBuses lists buses, optionally filtered by school_id.
func ListBuses(c *gin.Context) {
	query := config.DB
	if schoolID := c.Query("school_id"); schoolID != "" {
		query = query.Where("school_id = ?", schoolID)
	}

	var buses []models.Bus
	if err := query.Find(&buses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch buses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": buses})
}

// UpdateBus modifies an existing bus.
func UpdateBus(c *gin.Context) {
	id := c.Param("id")
	var bus models.Bus
	if err := config.DB.First(&bus, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bus not found"})
		return
	}

	var input struct {
		Registration *string `json:"registration"`
		Capacity     *int    `json:"capacity"`
		MinderID     *uint   `json:"minder_id"`
		RouteID      *uint   `json:"route_id"`
		DriverName   *string `json:"driver_name"`
		DriverPhone  *string `json:"driver_phone"`
		InService    *bool   `json:"in_service"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Registration != nil {
		bus.Registration = *input.Registration
	}
	if input.Capacity != nil {
		bus.Capacity = *input.Capacity
	}
	if input.MinderID != nil {
		bus.MinderID = *input.MinderID
	}
	if input.RouteID != nil {
		bus.RouteID = *input.RouteID
	}
	if input.DriverName != nil {
		bus.DriverName = *input.DriverName
	}
	if input.DriverPhone != nil {
		bus.DriverPhone = *input.DriverPhone
	}
	if input.InService != nil {
		bus.InService = *input.InService
	}

	if err := config.DB.Save(&bus).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update bus"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bus": bus})
}

// DeleteBus removes a bus from the fleet.
func DeleteBus(c *gin.Context) {
	id := c.Param("id")
	if err := config.DB.Delete(&models.Bus{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete bus"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bus deleted"})
}
