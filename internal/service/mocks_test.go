package service

import (
	"context"
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Mock ClassRepository ---

type mockClassRepo struct {
	createFn         func(ctx context.Context, tx *gorm.DB, class *models.Class) error
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*models.Class, error)
	findForUpdateFn  func(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Class, error)
	updateStatusFn   func(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.ClassStatus) error
	findActiveFn     func(ctx context.Context) ([]models.Class, error)
	existsActiveAtFn func(ctx context.Context, coachID uuid.UUID, at time.Time) (bool, error)
}

func (m *mockClassRepo) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	return m.createFn(ctx, tx, class)
}
func (m *mockClassRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockClassRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Class, error) {
	return m.findForUpdateFn(ctx, tx, id)
}
func (m *mockClassRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.ClassStatus) error {
	return m.updateStatusFn(ctx, tx, id, status)
}
func (m *mockClassRepo) FindActive(ctx context.Context) ([]models.Class, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockClassRepo) ExistsActiveAt(ctx context.Context, coachID uuid.UUID, at time.Time) (bool, error) {
	if m.existsActiveAtFn != nil {
		return m.existsActiveAtFn(ctx, coachID, at)
	}
	return false, nil
}
func (m *mockClassRepo) GetDB() *gorm.DB { return nil }

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	createFn              func(ctx context.Context, tx *gorm.DB, b *models.Booking) error
	findByIDFn            func(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	findByKeyFn           func(ctx context.Context, key string) (*models.Booking, error)
	findByClassFn         func(ctx context.Context, classID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error)
	countActiveFn         func(ctx context.Context, tx *gorm.DB, classID uuid.UUID) (int64, error)
	cancelActiveByClassFn func(ctx context.Context, tx *gorm.DB, classID uuid.UUID, reason string, at time.Time) (int64, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	return m.createFn(ctx, tx, b)
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockBookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockBookingRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	if m.findByKeyFn != nil {
		return m.findByKeyFn(ctx, key)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindByClassID(ctx context.Context, classID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error) {
	return m.findByClassFn(ctx, classID, status)
}
func (m *mockBookingRepo) FindActiveByStudentAndClass(ctx context.Context, tx *gorm.DB, studentID, classID uuid.UUID) (*models.Booking, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) CountActiveByClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID) (int64, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx, tx, classID)
	}
	return 0, nil
}
func (m *mockBookingRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.BookingStatus) error {
	return nil
}
func (m *mockBookingRepo) UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return nil
}
func (m *mockBookingRepo) Cancel(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) error {
	return nil
}
func (m *mockBookingRepo) CancelActiveByClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID, reason string, at time.Time) (int64, error) {
	if m.cancelActiveByClassFn != nil {
		return m.cancelActiveByClassFn(ctx, tx, classID, reason, at)
	}
	return 0, nil
}
func (m *mockBookingRepo) GetDB() *gorm.DB { return nil }

// --- Mock GroupRepository ---

type mockGroupRepo struct {
	createFn        func(ctx context.Context, group *models.Group) error
	findByIDFn      func(ctx context.Context, id uuid.UUID) (*models.Group, error)
	updateMembersFn func(ctx context.Context, tx *gorm.DB, id uuid.UUID, members []uuid.UUID) error
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.Group) error {
	return m.createFn(ctx, group)
}
func (m *mockGroupRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockGroupRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Group, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockGroupRepo) UpdateMembers(ctx context.Context, tx *gorm.DB, id uuid.UUID, members []uuid.UUID) error {
	if m.updateMembersFn != nil {
		return m.updateMembersFn(ctx, tx, id, members)
	}
	return nil
}
func (m *mockGroupRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.GroupStatus) error {
	return nil
}
func (m *mockGroupRepo) GetDB() *gorm.DB { return nil }

// --- Mock CenterRepository ---

type mockCenterRepo struct {
	findByIDFn func(ctx context.Context, id uuid.UUID) (*models.Center, error)
}

func (m *mockCenterRepo) Create(ctx context.Context, center *models.Center) error { return nil }
func (m *mockCenterRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockCenterRepo) GetDB() *gorm.DB { return nil }
