package repository

import (
	"context"
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HolidayRepository interface {
	FindByCountryAndRange(ctx context.Context, country string, from, to time.Time) ([]models.Holiday, error)
	Upsert(ctx context.Context, holiday *models.Holiday) error
	GetDB() *gorm.DB
}

type holidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *holidayRepository) FindByCountryAndRange(ctx context.Context, country string, from, to time.Time) ([]models.Holiday, error) {
	var holidays []models.Holiday
	err := r.db.WithContext(ctx).
		Where("country = ? AND date >= ? AND date <= ?", country, from, to).
		Order("date ASC").
		Find(&holidays).Error
	if err != nil {
		return nil, err
	}
	return holidays, nil
}

// Upsert inserts or refreshes a holiday record fed by an external holiday
// source (same ID on re-publication).
func (r *holidayRepository) Upsert(ctx context.Context, holiday *models.Holiday) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "date", "type", "country", "state", "description", "observance_rules", "updated_at"}),
	}).Create(holiday).Error
}
