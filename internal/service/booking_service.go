package service

import (
	"context"
	"errors"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/coachhub/scheduler/internal/audit"
	"github.com/coachhub/scheduler/internal/metrics"
	"github.com/coachhub/scheduler/internal/models"
	"github.com/coachhub/scheduler/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentProvider supplies externally-managed payment state. The engine only
// reads status, it never initiates charges.
type PaymentProvider interface {
	PaymentStatus(ctx context.Context, paymentID uuid.UUID) (string, error)
}

// BookingPolicy tunes lifecycle rules that vary per deployment.
type BookingPolicy struct {
	// AllowUnpaidNonRegular lets trial and one_time bookings confirm without
	// a paid payment status.
	AllowUnpaidNonRegular bool
}

// RetryConfig bounds retries of transient persistence failures. Retried
// admissions are safe to replay because they are keyed by idempotency key.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
}

type CreateBookingInput struct {
	ClassID        uuid.UUID
	StudentID      uuid.UUID
	BookingType    models.BookingType
	Amount         *decimal.Decimal
	PaymentStatus  string
	PaymentID      *uuid.UUID
	Notes          string
	IdempotencyKey string
}

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*models.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookings(ctx context.Context, classID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error)
	CanAdmit(ctx context.Context, classID uuid.UUID) (bool, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	classRepo   repository.ClassRepository
	payments    PaymentProvider
	policy      BookingPolicy
	retryConf   RetryConfig
	emitter     audit.Emitter
	logger      *zap.Logger
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	classRepo repository.ClassRepository,
	payments PaymentProvider,
	policy BookingPolicy,
	retryConf RetryConfig,
	emitter audit.Emitter,
	logger *zap.Logger,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		classRepo:   classRepo,
		payments:    payments,
		policy:      policy,
		retryConf:   retryConf,
		emitter:     emitter,
		logger:      logger,
	}
}

// CreateBooking admits a student into a class. The capacity check and the
// booking insert run in one transaction under a class row lock, so two
// concurrent requests for the last seat cannot both succeed. Replaying the
// same idempotency key returns the booking created the first time.
func (s *bookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if in.IdempotencyKey == "" {
		return nil, &ValidationError{Field: "idempotency_key", Reason: "is required"}
	}
	if !in.BookingType.Valid() {
		return nil, &ValidationError{Field: "booking_type", Reason: "must be regular, trial or one_time"}
	}

	if existing, err := s.bookingRepo.FindByIdempotencyKey(ctx, in.IdempotencyKey); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	started := time.Now()
	var result *models.Booking
	err := s.withRetry(ctx, func() error {
		result = nil
		return s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			class, err := s.classRepo.FindByIDForUpdate(ctx, tx, in.ClassID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "class", ID: in.ClassID}
				}
				return err
			}
			if !class.IsActive() {
				return &ValidationError{Field: "class_id", Reason: "class is not open for booking"}
			}

			if _, err := s.bookingRepo.FindActiveByStudentAndClass(ctx, tx, in.StudentID, in.ClassID); err == nil {
				return ErrAlreadyBooked
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			count, err := s.bookingRepo.CountActiveByClass(ctx, tx, in.ClassID)
			if err != nil {
				return err
			}
			if int(count) >= class.MaxStudents {
				return &CapacityError{Entity: "class", ID: class.ID, Max: class.MaxStudents}
			}

			booking := &models.Booking{
				ID:             uuid.New(),
				ClassID:        in.ClassID,
				StudentID:      in.StudentID,
				OrganizationID: class.OrganizationID,
				Status:         models.BookingPending,
				BookingType:    in.BookingType,
				ScheduledAt:    class.ScheduledAt,
				Amount:         in.Amount,
				PaymentStatus:  in.PaymentStatus,
				PaymentID:      in.PaymentID,
				Notes:          in.Notes,
				IdempotencyKey: in.IdempotencyKey,
			}
			if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
				return err
			}
			result = booking
			return nil
		})
	})
	if err != nil {
		// a concurrent retry with the same key may have committed first
		if existing, lookupErr := s.bookingRepo.FindByIdempotencyKey(ctx, in.IdempotencyKey); lookupErr == nil {
			return existing, nil
		}
		// the active-booking index caught the same student racing in under a
		// different key
		if isUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		if errors.Is(err, ErrCapacityExceeded) {
			metrics.CapacityRejections.Inc()
		}
		return nil, err
	}

	metrics.BookingsAdmitted.Inc()
	metrics.AdmissionSeconds.Observe(time.Since(started).Seconds())

	s.emitter.Emit(ctx, audit.Event{
		Action:     "booking.created",
		EntityType: "booking",
		EntityID:   result.ID,
		ActorID:    audit.ActorFrom(ctx),
		After: map[string]any{
			"status":     string(result.Status),
			"class_id":   result.ClassID.String(),
			"student_id": result.StudentID.String(),
		},
	})
	s.logger.Info("booking created",
		zap.String("booking_id", result.ID.String()),
		zap.String("class_id", result.ClassID.String()),
		zap.String("student_id", result.StudentID.String()),
		zap.String("booking_type", string(result.BookingType)),
	)
	return result, nil
}

// ConfirmBooking moves pending -> confirmed. Requires a paid payment status,
// or a trial/one_time booking when policy allows confirming those unpaid.
func (s *bookingService) ConfirmBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var result *models.Booking
	err := s.withRetry(ctx, func() error {
		result = nil
		return s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "booking", ID: id}
				}
				return err
			}
			if !booking.CanTransition(models.BookingConfirmed) {
				return &TransitionError{Entity: "booking", ID: id, From: string(booking.Status), To: string(models.BookingConfirmed)}
			}

			paymentStatus := booking.PaymentStatus
			if s.payments != nil && booking.PaymentID != nil {
				paymentStatus, err = s.payments.PaymentStatus(ctx, *booking.PaymentID)
				if err != nil {
					return err
				}
				if paymentStatus != booking.PaymentStatus {
					if err := s.bookingRepo.UpdatePaymentStatus(ctx, tx, id, paymentStatus); err != nil {
						return err
					}
				}
			}
			if !s.confirmable(booking, paymentStatus) {
				return &TransitionError{
					Entity: "booking", ID: id,
					From: string(booking.Status), To: string(models.BookingConfirmed),
					Reason: "payment required",
				}
			}

			if err := s.bookingRepo.UpdateStatus(ctx, tx, id, models.BookingConfirmed); err != nil {
				return err
			}
			booking.Status = models.BookingConfirmed
			booking.PaymentStatus = paymentStatus
			result = booking
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, result.ID, "booking.confirmed", models.BookingPending, models.BookingConfirmed)
	return result, nil
}

// CompleteBooking moves confirmed -> completed, valid only once the class
// has started or has itself completed.
func (s *bookingService) CompleteBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var result *models.Booking
	err := s.withRetry(ctx, func() error {
		result = nil
		return s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "booking", ID: id}
				}
				return err
			}
			if !booking.CanTransition(models.BookingCompleted) {
				return &TransitionError{Entity: "booking", ID: id, From: string(booking.Status), To: string(models.BookingCompleted)}
			}

			class, err := s.classRepo.FindByID(ctx, booking.ClassID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "class", ID: booking.ClassID}
				}
				return err
			}
			if class.Status != models.ClassCompleted && time.Now().Before(class.ScheduledAt) {
				return &TransitionError{
					Entity: "booking", ID: id,
					From: string(booking.Status), To: string(models.BookingCompleted),
					Reason: "class has not started",
				}
			}

			if err := s.bookingRepo.UpdateStatus(ctx, tx, id, models.BookingCompleted); err != nil {
				return err
			}
			booking.Status = models.BookingCompleted
			result = booking
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, result.ID, "booking.completed", models.BookingConfirmed, models.BookingCompleted)
	return result, nil
}

// CancelBooking moves any non-terminal booking to cancelled, recording the
// reason and time. The seat is freed immediately: occupancy only counts
// pending and confirmed rows.
func (s *bookingService) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*models.Booking, error) {
	now := time.Now().UTC()
	var result *models.Booking
	var from models.BookingStatus
	err := s.withRetry(ctx, func() error {
		result = nil
		return s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "booking", ID: id}
				}
				return err
			}
			if !booking.CanTransition(models.BookingCancelled) {
				return &TransitionError{Entity: "booking", ID: id, From: string(booking.Status), To: string(models.BookingCancelled)}
			}
			from = booking.Status

			if err := s.bookingRepo.Cancel(ctx, tx, id, reason, now); err != nil {
				return err
			}
			booking.Status = models.BookingCancelled
			booking.CancellationReason = &reason
			booking.CancellationTime = &now
			result = booking
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, result.ID, "booking.cancelled", from, models.BookingCancelled)
	s.logger.Info("booking cancelled",
		zap.String("booking_id", id.String()),
		zap.String("reason", reason),
	)
	return result, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "booking", ID: id}
	}
	return booking, err
}

func (s *bookingService) ListBookings(ctx context.Context, classID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error) {
	return s.bookingRepo.FindByClassID(ctx, classID, status)
}

// CanAdmit is the read-only capacity probe; the authoritative check happens
// inside CreateBooking's transaction.
func (s *bookingService) CanAdmit(ctx context.Context, classID uuid.UUID) (bool, error) {
	class, err := s.classRepo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, &NotFoundError{Entity: "class", ID: classID}
		}
		return false, err
	}
	count, err := s.bookingRepo.CountActiveByClass(ctx, s.bookingRepo.GetDB(), classID)
	if err != nil {
		return false, err
	}
	return class.IsActive() && int(count) < class.MaxStudents, nil
}

func (s *bookingService) confirmable(b *models.Booking, paymentStatus string) bool {
	if paymentStatus == models.PaymentPaid {
		return true
	}
	return b.BookingType != models.BookingRegular && s.policy.AllowUnpaidNonRegular
}

func (s *bookingService) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(s.retryConf.Attempts),
		retry.Delay(s.retryConf.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.Context(ctx),
	)
}

func (s *bookingService) emitTransition(ctx context.Context, id uuid.UUID, action string, from, to models.BookingStatus) {
	s.emitter.Emit(ctx, audit.Event{
		Action:     action,
		EntityType: "booking",
		EntityID:   id,
		ActorID:    audit.ActorFrom(ctx),
		Before:     map[string]any{"status": string(from)},
		After:      map[string]any{"status": string(to)},
	})
}
