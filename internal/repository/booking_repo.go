package repository

import (
	"context"
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeBookingStatuses = []models.BookingStatus{models.BookingPending, models.BookingConfirmed}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	FindByClassID(ctx context.Context, classID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error)
	FindActiveByStudentAndClass(ctx context.Context, tx *gorm.DB, studentID, classID uuid.UUID) (*models.Booking, error)
	CountActiveByClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.BookingStatus) error
	UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, paymentStatus string) error
	Cancel(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) error
	CancelActiveByClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID, reason string, at time.Time) (int64, error)
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "idempotency_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByClassID(ctx context.Context, classID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("class_id = ?", classID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("created_at ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindActiveByStudentAndClass(ctx context.Context, tx *gorm.DB, studentID, classID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := tx.WithContext(ctx).
		Where("student_id = ? AND class_id = ? AND status IN ?", studentID, classID, activeBookingStatuses).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CountActiveByClass counts bookings that hold a seat. Must run inside the
// admission transaction, after the class row lock.
func (r *bookingRepository) CountActiveByClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("class_id = ? AND status IN ?", classID, activeBookingStatuses).
		Count(&count).Error
	return count, err
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, paymentStatus string) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("payment_status", paymentStatus).Error
}

func (r *bookingRepository) Cancel(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              models.BookingCancelled,
			"cancellation_reason": reason,
			"cancellation_time":   at,
		}).Error
}

// CancelActiveByClass cancels every seat-holding booking of a class in one
// statement; it is the cascade half of a class cancellation and must run in
// the same transaction as the class status update.
func (r *bookingRepository) CancelActiveByClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID, reason string, at time.Time) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("class_id = ? AND status IN ?", classID, activeBookingStatuses).
		Updates(map[string]interface{}{
			"status":              models.BookingCancelled,
			"cancellation_reason": reason,
			"cancellation_time":   at,
		})
	return res.RowsAffected, res.Error
}
