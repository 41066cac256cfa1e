package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shule_transit/internal/config"
	"shule_transit/internal/models"
)

// CreateRoute registers a new bus route for a school.
func CreateRoute(c *gin.Context) {
	var input models.BusRoute
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.ZoneID != 0 {
		var zone models.Zone
		if err := config.DB.First(&zone, input.ZoneID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "zone does not exist"})
			return
		}
	}

	if err := config.DB.Create(&input).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create route: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": input})
}

// GetRoute retrieves a route with its students and buses.
func GetRoute(c *gin.Context) {
	id := c.Param("id")
	var route models.BusRoute
	if err := config.DB.Preload("Students").Preload("Buses").First(&route, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}

// ListRoutes lists routes, optionally filtered by school_id.
func ListRoutes(c *gin.Context) {
	query := config.DB
	if schoolID := c.Query("school_id"); schoolID != "" {
		query = query.Where("school_id = ?", schoolID)
	}

	var routes []models.BusRoute
	if err := query.Find(&routes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch routes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": routes})
}

// UpdateRoute modifies an existing route.
func UpdateRoute(c *gin.Context) {
	id := c.Param("id")
	var route models.BusRoute
	if err := config.DB.First(&route, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ZoneID      *uint   `json:"zone_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		route.Name = *input.Name
	}
	if input.Description != nil {
		route.Description = *input.Description
	}
	if input.ZoneID != nil {
		var zone models.Zone
		if err := config.DB.First(&zone, *input.ZoneID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "zone does not exist"})
			return
		}
		route.ZoneID = *input.ZoneID
	}

	if err := config.DB.Save(&route).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update route"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}
