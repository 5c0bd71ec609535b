package repository

import (
	"context"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CenterRepository interface {
	Create(ctx context.Context, center *models.Center) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Center, error)
	GetDB() *gorm.DB
}

type centerRepository struct {
	db *gorm.DB
}

func NewCenterRepository(db *gorm.DB) CenterRepository {
	return &centerRepository{db: db}
}

func (r *centerRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *centerRepository) Create(ctx context.Context, center *models.Center) error {
	return r.db.WithContext(ctx).Create(center).Error
}

func (r *centerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	var center models.Center
	if err := r.db.WithContext(ctx).First(&center, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &center, nil
}
