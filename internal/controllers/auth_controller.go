package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shule_transit/internal/config"
	"shule_transit/internal/middleware"
	"shule_transit/internal/models"
)

type signupInput struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	SchoolName string `json:"school_name"`
	IDNumber   string `json:"id_number"`
	SchoolID   uint   `json:"school_id"`
}

func SignupUser(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := validateAndNormalizeRole(input.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Role = role

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
		return
	}

	user, err := createUserRecord(tx, input, hashedPassword)
	if err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "duplicate key") {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user: " + err.Error()})
		return
	}

	if err := createActorRecord(tx, &user, input); err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "required for") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create actor record: " + err.Error()})
		}
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not commit transaction: " + err.Error()})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

func LoginUser(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	query := config.DB.Where("email = ?", body.Email).
		Preload("School").
		Preload("Minder").
		Preload("Minder.School")

	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or invalid credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

func validateAndNormalizeRole(roleInput string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(roleInput))
	if role == "" {
		role = "parent"
	}
	switch role {
	case "parent", "admin", "school", "minder":
		return role, nil
	default:
		return "", errors.New("invalid role")
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func createUserRecord(tx *gorm.DB, input signupInput, hashedPassword string) (models.User, error) {
	user := models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: hashedPassword,
		Phone:    input.Phone,
		Role:     input.Role,
	}
	if err := tx.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func createActorRecord(tx *gorm.DB, user *models.User, input signupInput) error {
	switch user.Role {
	case "school":
		if input.SchoolName == "" {
			return errors.New("school_name is required for school role")
		}
		school := models.School{
			UserID: user.ID,
			Name:   input.SchoolName,
			Email:  input.Email,
			Phone:  input.Phone,
		}
		return tx.Create(&school).Error
	case "minder":
		if input.SchoolID == 0 {
			return errors.New("school_id is required for minder role")
		}
		var school models.School
		if err := tx.First(&school, input.SchoolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("school_id is required for minder role: school does not exist")
			}
			return err
		}
		minder := models.Minder{
			UserID:   user.ID,
			Name:     input.Name,
			Phone:    input.Phone,
			IDNumber: input.IDNumber,
			SchoolID: input.SchoolID,
		}
		return tx.Create(&minder).Error
	default:
		// Parents and admins need no actor record.
		return nil
	}
}

// prepareUserResponse strips credentials from the user payload.
func prepareUserResponse(user models.User) gin.H {
	response := gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"phone": user.Phone,
		"role":  user.Role,
	}
	if user.School != nil {
		response["school"] = user.School
	}
	if user.Minder != nil {
		response["minder"] = user.Minder
	}
	return response
}
