//go:build integration

package integration

import (
	"context"
	"errors"
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

// recordingEmitter captures audit events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingEmitter) Emit(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) find(action string) (audit.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Action == action {
			return e, true
		}
	}
	return audit.Event{}, false
}

func newClassServiceEmitting(calendar *schedule.Calendar, emitter audit.Emitter) service.ClassService {
	classRepo := repository.NewClassRepository(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	centerRepo := repository.NewCenterRepository(testDB)
	groupRepo := repository.NewGroupRepository(testDB)
	registry := schedule.NewHolidayRegistry(nil)
	expander := schedule.NewExpander(registry, schedule.HolidayPolicyDrop, "IN", "")
	return service.NewClassService(classRepo, bookingRepo, centerRepo, groupRepo,
		calendar, registry, expander, service.Locale{Country: "IN"},
		retryConf, emitter, zap.NewNop())
}

func createTestClassAt(t *testing.T, scheduledAt time.Time, durationMin int, status models.ClassStatus) *models.Class {
	t.Helper()
	class := &models.Class{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		CoachID:        uuid.New(),
		Name:           "Evening Batch",
		ScheduledAt:    scheduledAt.Truncate(time.Second),
		DurationMin:    durationMin,
		MaxStudents:    5,
		Type:           models.ClassRegular,
		Status:         status,
	}
	require.NoError(t, testDB.Create(class).Error)
	return class
}

// A class cannot start before its scheduled time; once the time has passed,
// starting succeeds.
func TestStartClassTimeGuard(t *testing.T) {
	cleanTables()
	classSvc := newClassService(schedule.NewCalendar())

	future := createTestClassAt(t, time.Now().Add(24*time.Hour), 60, models.ClassScheduled)
	_, err := classSvc.StartClass(t.Context(), future.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	due := createTestClassAt(t, time.Now().Add(-10*time.Minute), 60, models.ClassScheduled)
	started, err := classSvc.StartClass(t.Context(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassInProgress, started.Status)
}

// A class cannot complete before its end time; once the end time has passed,
// completion succeeds.
func TestCompleteClassTimeGuard(t *testing.T) {
	cleanTables()
	classSvc := newClassService(schedule.NewCalendar())

	running := createTestClassAt(t, time.Now().Add(-10*time.Minute), 60, models.ClassInProgress)
	_, err := classSvc.CompleteClass(t.Context(), running.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	over := createTestClassAt(t, time.Now().Add(-2*time.Hour), 60, models.ClassInProgress)
	completed, err := classSvc.CompleteClass(t.Context(), over.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassCompleted, completed.Status)
}

// A confirmed booking cannot complete while the class is still in the future.
func TestCompleteBookingTimeGuard(t *testing.T) {
	cleanTables()
	svc := newBookingService()

	book := func(classID uuid.UUID, key string) *models.Booking {
		t.Helper()
		booking, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
			ClassID:        classID,
			StudentID:      uuid.New(),
			BookingType:    models.BookingTrial,
			IdempotencyKey: key,
		})
		require.NoError(t, err)
		confirmed, err := svc.ConfirmBooking(t.Context(), booking.ID)
		require.NoError(t, err)
		return confirmed
	}

	future := createTestClassAt(t, time.Now().Add(24*time.Hour), 60, models.ClassScheduled)
	early := book(future.ID, "guard-early")
	_, err := svc.CompleteBooking(t.Context(), early.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	underway := createTestClassAt(t, time.Now().Add(-10*time.Minute), 60, models.ClassScheduled)
	due := book(underway.ID, "guard-due")
	completed, err := svc.CompleteBooking(t.Context(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, completed.Status)
}

// Cancelling an in-progress class records the actual prior status in the
// audit event, not the scheduled default.
func TestCancelClassAuditRecordsPriorStatus(t *testing.T) {
	cleanTables()
	emitter := &recordingEmitter{}
	classSvc := newClassServiceEmitting(schedule.NewCalendar(), emitter)

	running := createTestClassAt(t, time.Now().Add(-10*time.Minute), 60, models.ClassInProgress)
	_, err := classSvc.CancelClass(t.Context(), running.ID, "coach injury")
	require.NoError(t, err)

	event, ok := emitter.find("class.cancelled")
	require.True(t, ok)
	assert.Equal(t, string(models.ClassInProgress), event.Before["status"])
	assert.Equal(t, "coach injury", event.After["reason"])
}

// The same student racing two requests with different idempotency keys gets
// exactly one seat; the loser sees a conflict, not a raw driver error.
func TestSameStudentRacesDifferentKeys(t *testing.T) {
	cleanTables()
	class := createTestClass(t, 5)
	svc := newBookingService()

	studentID := uuid.New()
	keys := []string{"race-a", "race-b"}
	errs := make(chan error, len(keys))
	var wg sync.WaitGroup

	wg.Add(len(keys))
	for _, key := range keys {
		go func(key string) {
			defer wg.Done()
			_, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
				ClassID:        class.ID,
				StudentID:      studentID,
				BookingType:    models.BookingRegular,
				IdempotencyKey: key,
			})
			errs <- err
		}(key)
	}
	wg.Wait()
	close(errs)

	admitted, conflicted := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, service.ErrConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, conflicted)

	var active int64
	testDB.Model(&models.Booking{}).
		Where("class_id = ? AND student_id = ? AND status IN ('pending', 'confirmed')", class.ID, studentID).
		Count(&active)
	assert.Equal(t, int64(1), active)
}
