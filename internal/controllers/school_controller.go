package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shule_transit/internal/config"
	"shule_transit/internal/models"
)

// GetSchool retrieves a school with its fleet associations.
func GetSchool(c *gin.Context) {
	id := c.Param("id")
	var school models.School
	if err := config.DB.Preload("Buses").Preload("Routes").Preload("Zones").First(&school, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "school not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"school": school})
}

// ListSchools lists all registered schools.
func ListSchools(c *gin.Context) {
	var schools []models.School
	if err := config.DB.Find(&schools).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch schools"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": schools})
}

// UpdateSchool modifies an existing school's contact details.
func UpdateSchool(c *gin.Context) {
	id := c.Param("id")
	var school models.School
	if err := config.DB.First(&school, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "school not found"})
		return
	}

	var input struct {
		Name    *string `json:"name"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		school.Name = *input.Name
	}
	if input.Email != nil {
		school.Email = *input.Email
	}
	if input.Phone != nil {
		school.Phone = *input.Phone
	}
	if input.Address != nil {
		school.Address = *input.Address
	}

	if err := config.DB.Save(&school).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update school"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"school": school})
}
