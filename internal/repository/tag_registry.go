package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shule_transit/internal/checkin"
	"shule_transit/internal/models"
)

// TagRegistry resolves RFID tag ids to students. An unknown tag is
// (nil, nil); only a backend failure is an error.
type TagRegistry struct {
	db *gorm.DB
}

func NewTagRegistry(db *gorm.DB) *TagRegistry {
	return &TagRegistry{db: db}
}

func (r *TagRegistry) LookupStudentByTag(ctx context.Context, tagID string) (*checkin.StudentRef, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("rfid_tag = ? AND active = ?", tagID, true).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up tag %s: %w", tagID, err)
	}
	return &checkin.StudentRef{ID: student.ID, Name: student.Name}, nil
}
