package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shule_transit/internal/config"
	"shule_transit/internal/models"
)

// CreateStudent enrolls a student on a route.
func CreateStudent(c *gin.Context) {
	var input models.Student
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Active = true

	if err := config.DB.Create(&input).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create student: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": input})
}

// GetStudent retrieves a student by ID.
func GetStudent(c *gin.Context) {
	id := c.Param("id")
	var student models.Student
	if err := config.DB.First(&student, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// ListStudents lists students filtered by route_id or school_id.
func ListStudents(c *gin.Context) {
	query := config.DB
	if routeID := c.Query("route_id"); routeID != "" {
		query = query.Where("route_id = ?", routeID)
	}
	if schoolID := c.Query("school_id"); schoolID != "" {
		query = query.Where("school_id = ?", schoolID)
	}

	var students []models.Student
	if err := query.Order("pickup_order asc, id asc").Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch students"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": students})
}

// ListMyChildren lists the students linked to the authenticated parent.
func ListMyChildren(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var students []models.Student
	if err := config.DB.Where("parent_id = ?", userID).Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch students"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": students})
}

// UpdateStudent modifies an existing student record.
func UpdateStudent(c *gin.Context) {
	id := c.Param("id")
	var student models.Student
	if err := config.DB.First(&student, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}

	var input struct {
		Name        *string `json:"name"`
		RouteID     *uint   `json:"route_id"`
		PickupOrder *int    `json:"pickup_order"`
		Active      *bool   `json:"active"`
		Address     *string `json:"address"`
		ParentName  *string `json:"parent_name"`
		ParentPhone *string `json:"parent_phone"`
		ParentID    *uint   `json:"parent_id"`
		PhotoURL    *string `json:"photo_url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		student.Name = *input.Name
	}
	if input.RouteID != nil {
		student.RouteID = *input.RouteID
	}
	if input.PickupOrder != nil {
		student.PickupOrder = *input.PickupOrder
	}
	if input.Active != nil {
		student.Active = *input.Active
	}
	if input.Address != nil {
		student.Address = *input.Address
	}
	if input.ParentName != nil {
		student.ParentName = *input.ParentName
	}
	if input.ParentPhone != nil {
		student.ParentPhone = *input.ParentPhone
	}
	if input.ParentID != nil {
		student.ParentID = *input.ParentID
	}
	if input.PhotoURL != nil {
		student.PhotoURL = *input.PhotoURL
	}

	if err := config.DB.Save(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update student"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// AssignTag binds an RFID card to a student. The tag must not already be
// assigned to another active student.
func AssignTag(c *gin.Context) {
	id := c.Param("id")
	var student models.Student
	if err := config.DB.First(&student, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}

	var body struct {
		RFIDTag string `json:"rfid_tag" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	config.DB.Model(&models.Student{}).
		Where("rfid_tag = ? AND active = ? AND id <> ?", body.RFIDTag, true, student.ID).
		Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "tag already assigned to another student"})
		return
	}

	student.RFIDTag = body.RFIDTag
	if err := config.DB.Save(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assign tag"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}
