package repository

import (
	"context"
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeClassStatuses = []models.ClassStatus{models.ClassScheduled, models.ClassInProgress}

type ClassRepository interface {
	Create(ctx context.Context, tx *gorm.DB, class *models.Class) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Class, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Class, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.ClassStatus) error
	FindActive(ctx context.Context) ([]models.Class, error)
	ExistsActiveAt(ctx context.Context, coachID uuid.UUID, at time.Time) (bool, error)
	GetDB() *gorm.DB
}

type classRepository struct {
	db *gorm.DB
}

func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *classRepository) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	return tx.WithContext(ctx).Create(class).Error
}

func (r *classRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByIDForUpdate acquires a row-level lock on the class within the given
// transaction, serializing concurrent admissions for the same class.
func (r *classRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Class, error) {
	var class models.Class
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&class, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.ClassStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Class{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// FindActive returns classes that still occupy calendar intervals; used to
// rebuild the in-memory index at startup.
func (r *classRepository) FindActive(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	err := r.db.WithContext(ctx).
		Where("status IN ?", activeClassStatuses).
		Order("scheduled_at ASC").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) ExistsActiveAt(ctx context.Context, coachID uuid.UUID, at time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Class{}).
		Where("coach_id = ? AND scheduled_at = ? AND status IN ?", coachID, at, activeClassStatuses).
		Count(&count).Error
	return count > 0, err
}
