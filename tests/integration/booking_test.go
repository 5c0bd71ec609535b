//go:build integration

package integration

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coachhub/scheduler/internal/audit"
	"github.com/coachhub/scheduler/internal/models"
	"github.com/coachhub/scheduler/internal/repository"
	"github.com/coachhub/scheduler/internal/schedule"
	"github.com/coachhub/scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var retryConf = service.RetryConfig{Attempts: 3, Delay: 10 * time.Millisecond}

func newBookingService() service.BookingService {
	classRepo := repository.NewClassRepository(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	return service.NewBookingService(bookingRepo, classRepo, nil,
		service.BookingPolicy{AllowUnpaidNonRegular: true},
		retryConf, audit.NopEmitter{}, zap.NewNop())
}

func newClassService(calendar *schedule.Calendar) service.ClassService {
	classRepo := repository.NewClassRepository(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	centerRepo := repository.NewCenterRepository(testDB)
	groupRepo := repository.NewGroupRepository(testDB)
	registry := schedule.NewHolidayRegistry(nil)
	expander := schedule.NewExpander(registry, schedule.HolidayPolicyDrop, "IN", "")
	return service.NewClassService(classRepo, bookingRepo, centerRepo, groupRepo,
		calendar, registry, expander, service.Locale{Country: "IN"},
		retryConf, audit.NopEmitter{}, zap.NewNop())
}

func newGroupService() service.GroupService {
	groupRepo := repository.NewGroupRepository(testDB)
	return service.NewGroupService(groupRepo, retryConf, audit.NopEmitter{}, zap.NewNop())
}

func createTestClass(t *testing.T, maxStudents int) *models.Class {
	t.Helper()
	class := &models.Class{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		CoachID:        uuid.New(),
		Name:           "Evening Batch",
		ScheduledAt:    time.Now().Add(24 * time.Hour).Truncate(time.Second),
		DurationMin:    60,
		MaxStudents:    maxStudents,
		Type:           models.ClassRegular,
		Status:         models.ClassScheduled,
	}
	require.NoError(t, testDB.Create(class).Error)
	return class
}

func admit(svc service.BookingService, t *testing.T, classID uuid.UUID, key string) (*models.Booking, error) {
	t.Helper()
	return svc.CreateBooking(t.Context(), service.CreateBookingInput{
		ClassID:        classID,
		StudentID:      uuid.New(),
		BookingType:    models.BookingRegular,
		IdempotencyKey: key,
	})
}

// 25 students race for 10 seats; exactly 10 admissions succeed.
func TestConcurrentAdmission(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 10)
	svc := newBookingService()

	totalStudents := 25
	var wg sync.WaitGroup
	errs := make(chan error, totalStudents)

	wg.Add(totalStudents)
	for i := 0; i < totalStudents; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := admit(svc, t, class.ID, fmt.Sprintf("req-%03d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	admitted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, service.ErrCapacityExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 10, admitted, "exactly max_students admissions succeed")
	assert.Equal(t, 15, rejected)

	var dbActive int64
	testDB.Model(&models.Booking{}).
		Where("class_id = ? AND status IN ('pending', 'confirmed')", class.ID).
		Count(&dbActive)
	assert.Equal(t, int64(10), dbActive)
}

// Cancelling a booking frees its seat for the next admission.
func TestCancellationFreesSeat(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 2)
	svc := newBookingService()

	first, err := admit(svc, t, class.ID, "seat-1")
	require.NoError(t, err)
	_, err = admit(svc, t, class.ID, "seat-2")
	require.NoError(t, err)

	_, err = admit(svc, t, class.ID, "seat-3")
	assert.ErrorIs(t, err, service.ErrCapacityExceeded)

	_, err = svc.CancelBooking(t.Context(), first.ID, "student request")
	require.NoError(t, err)

	replacement, err := admit(svc, t, class.ID, "seat-4")
	assert.NoError(t, err)
	assert.Equal(t, models.BookingPending, replacement.Status)
}

// Replaying the same idempotency key returns the original booking and never
// consumes a second seat.
func TestIdempotentReplay(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 5)
	svc := newBookingService()

	studentID := uuid.New()
	in := service.CreateBookingInput{
		ClassID:        class.ID,
		StudentID:      studentID,
		BookingType:    models.BookingRegular,
		IdempotencyKey: "replay-key",
	}

	first, err := svc.CreateBooking(t.Context(), in)
	require.NoError(t, err)

	second, err := svc.CreateBooking(t.Context(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var rows int64
	testDB.Model(&models.Booking{}).Where("class_id = ?", class.ID).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

// A student cannot hold two active bookings for the same class.
func TestDoubleBookingPrevention(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 5)
	svc := newBookingService()

	studentID := uuid.New()
	_, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
		ClassID:        class.ID,
		StudentID:      studentID,
		BookingType:    models.BookingRegular,
		IdempotencyKey: "dup-1",
	})
	require.NoError(t, err)

	_, err = svc.CreateBooking(t.Context(), service.CreateBookingInput{
		ClassID:        class.ID,
		StudentID:      studentID,
		BookingType:    models.BookingRegular,
		IdempotencyKey: "dup-2",
	})
	assert.ErrorIs(t, err, service.ErrConflict)
}

// Cancelling a class cancels every seat-holding booking in the same
// transaction, each stamped with the cascade reason.
func TestClassCancellationCascade(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 10)
	bookingSvc := newBookingService()
	calendar := schedule.NewCalendar()
	classSvc := newClassService(calendar)

	for i := 0; i < 4; i++ {
		_, err := admit(bookingSvc, t, class.ID, fmt.Sprintf("cascade-%d", i))
		require.NoError(t, err)
	}
	// one booking already cancelled; the cascade must not touch it
	victim, err := admit(bookingSvc, t, class.ID, "cascade-pre-cancelled")
	require.NoError(t, err)
	_, err = bookingSvc.CancelBooking(t.Context(), victim.ID, "student request")
	require.NoError(t, err)

	cancelled, err := classSvc.CancelClass(t.Context(), class.ID, "coach unavailable")
	require.NoError(t, err)
	assert.Equal(t, models.ClassCancelled, cancelled.Status)

	var cascaded int64
	testDB.Model(&models.Booking{}).
		Where("class_id = ? AND status = ? AND cancellation_reason = ?",
			class.ID, models.BookingCancelled, models.CancelReasonClassCancelled).
		Count(&cascaded)
	assert.Equal(t, int64(4), cascaded)

	var untouched models.Booking
	require.NoError(t, testDB.First(&untouched, "id = ?", victim.ID).Error)
	assert.Equal(t, "student request", *untouched.CancellationReason)

	var active int64
	testDB.Model(&models.Booking{}).
		Where("class_id = ? AND status IN ('pending', 'confirmed')", class.ID).
		Count(&active)
	assert.Zero(t, active)
}

// A cancelled class cannot be cancelled twice.
func TestClassCancellationIsFinal(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 5)
	classSvc := newClassService(schedule.NewCalendar())

	_, err := classSvc.CancelClass(t.Context(), class.ID, "first")
	require.NoError(t, err)

	_, err = classSvc.CancelClass(t.Context(), class.ID, "second")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

// 12 students race for 5 group seats; the member list never exceeds max.
func TestConcurrentGroupJoin(t *testing.T) {
	cleanTables()
	svc := newGroupService()

	max := 5
	group, err := svc.CreateGroup(t.Context(), service.CreateGroupInput{
		OrganizationID: uuid.New(),
		CoachID:        uuid.New(),
		Name:           "U14 Squad",
		Type:           models.GroupTeam,
		MaxStudents:    &max,
	})
	require.NoError(t, err)

	total := 12
	var wg sync.WaitGroup
	errs := make(chan error, total)

	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.AddMember(t.Context(), group.ID, uuid.New())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	joined, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, service.ErrCapacityExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, joined)
	assert.Equal(t, 7, rejected)

	final, err := svc.GetGroup(t.Context(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, final.CurrentSize())
}

// Confirm requires payment for regular bookings, honors the trial policy.
func TestConfirmationPaymentGate(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 5)
	svc := newBookingService()

	unpaid, err := admit(svc, t, class.ID, "gate-regular")
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(t.Context(), unpaid.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	trial, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
		ClassID:        class.ID,
		StudentID:      uuid.New(),
		BookingType:    models.BookingTrial,
		IdempotencyKey: "gate-trial",
	})
	require.NoError(t, err)
	confirmed, err := svc.ConfirmBooking(t.Context(), trial.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
}
