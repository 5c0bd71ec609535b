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
	"github.com/coachhub/scheduler/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Locale is the organization's holiday scope. The engine manages a single
// organization, so this is fixed at construction.
type Locale struct {
	Country string
	State   string
}

type CreateClassInput struct {
	OrganizationID uuid.UUID
	CoachID        uuid.UUID
	CenterID       *uuid.UUID
	GroupID        *uuid.UUID
	Name           string
	Description    string
	Location       string
	ScheduledAt    time.Time
	DurationMin    int
	MaxStudents    int
	Type           models.ClassType
	Equipment      []string
	Metadata       map[string]any
}

type GenerateClassesInput struct {
	GroupID     uuid.UUID
	StartDate   time.Time
	DaysAhead   int
	Name        string
	Location    string
	DurationMin int
	MaxStudents int
	Type        models.ClassType
}

// Occupancy is a snapshot of how full a class is.
type Occupancy struct {
	Class          *models.Class
	ActiveBookings int64
	SeatsAvailable int
}

type ClassService interface {
	CreateClass(ctx context.Context, in CreateClassInput) (*models.Class, error)
	CreateRecurring(ctx context.Context, in CreateClassInput, pattern models.RecurrencePattern, rangeEnd time.Time) ([]models.Class, error)
	GenerateFromGroup(ctx context.Context, in GenerateClassesInput) ([]models.Class, error)
	StartClass(ctx context.Context, id uuid.UUID) (*models.Class, error)
	CompleteClass(ctx context.Context, id uuid.UUID) (*models.Class, error)
	CancelClass(ctx context.Context, id uuid.UUID, reason string) (*models.Class, error)
	GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error)
	ClassOccupancy(ctx context.Context, id uuid.UUID) (*Occupancy, error)
	RebuildCalendar(ctx context.Context) error
}

type classService struct {
	classRepo   repository.ClassRepository
	bookingRepo repository.BookingRepository
	centerRepo  repository.CenterRepository
	groupRepo   repository.GroupRepository
	calendar    *schedule.Calendar
	holidays    *schedule.HolidayRegistry
	expander    *schedule.Expander
	locale      Locale
	retryConf   RetryConfig
	emitter     audit.Emitter
	logger      *zap.Logger
}

func NewClassService(
	classRepo repository.ClassRepository,
	bookingRepo repository.BookingRepository,
	centerRepo repository.CenterRepository,
	groupRepo repository.GroupRepository,
	calendar *schedule.Calendar,
	holidays *schedule.HolidayRegistry,
	expander *schedule.Expander,
	locale Locale,
	retryConf RetryConfig,
	emitter audit.Emitter,
	logger *zap.Logger,
) ClassService {
	return &classService{
		classRepo:   classRepo,
		bookingRepo: bookingRepo,
		centerRepo:  centerRepo,
		groupRepo:   groupRepo,
		calendar:    calendar,
		holidays:    holidays,
		expander:    expander,
		locale:      locale,
		retryConf:   retryConf,
		emitter:     emitter,
		logger:      logger,
	}
}

// CreateClass validates the slot against holidays, center working hours and
// the coach/center/group calendars, then persists the class. The calendar
// reservation happens first under the owner locks; a failed persist releases
// it, so the index never advertises a class that was not stored.
func (s *classService) CreateClass(ctx context.Context, in CreateClassInput) (*models.Class, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}
	if err := s.checkSchedulable(ctx, in.CenterID, in.ScheduledAt, in.DurationMin); err != nil {
		return nil, err
	}

	class, err := s.createOne(ctx, in, in.ScheduledAt, false, nil)
	if err != nil {
		return nil, err
	}

	s.emitClassEvent(ctx, class, "class.created")
	s.logger.Info("class created",
		zap.String("class_id", class.ID.String()),
		zap.String("coach_id", class.CoachID.String()),
		zap.Time("scheduled_at", class.ScheduledAt),
	)
	return class, nil
}

// CreateRecurring expands the pattern anchored at in.ScheduledAt and creates
// every occurrence, all or nothing: calendar slots are reserved up front and
// the rows are written in one transaction; any failure releases everything.
func (s *classService) CreateRecurring(ctx context.Context, in CreateClassInput, pattern models.RecurrencePattern, rangeEnd time.Time) ([]models.Class, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	occurrences, err := s.expander.Expand(pattern, in.ScheduledAt, rangeEnd)
	if err != nil {
		return nil, &ValidationError{Field: "recurring_pattern", Reason: err.Error()}
	}
	if len(occurrences) == 0 {
		return nil, &ValidationError{Field: "recurring_pattern", Reason: "pattern produces no occurrences in range"}
	}

	classes := make([]*models.Class, 0, len(occurrences))
	var reserved []reservation
	release := func() {
		for _, r := range reserved {
			s.calendar.Remove(r.owner, r.classID)
		}
	}

	for _, at := range occurrences {
		if err := s.checkSchedulable(ctx, in.CenterID, at, in.DurationMin); err != nil {
			release()
			return nil, err
		}
		class := s.buildClass(in, at, true, &pattern)
		res, err := s.reserve(class)
		if err != nil {
			release()
			metrics.ScheduleConflicts.Inc()
			return nil, err
		}
		reserved = append(reserved, res...)
		classes = append(classes, class)
	}

	err = s.withRetry(ctx, func() error {
		return s.classRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, class := range classes {
				if err := s.classRepo.Create(ctx, tx, class); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		release()
		return nil, err
	}

	out := make([]models.Class, len(classes))
	for i, class := range classes {
		out[i] = *class
		s.emitClassEvent(ctx, class, "class.created")
	}
	s.logger.Info("recurring classes created",
		zap.String("coach_id", in.CoachID.String()),
		zap.Int("occurrences", len(out)),
	)
	return out, nil
}

// GenerateFromGroup materializes upcoming classes from a group's schedule
// pattern, the automated "create classes N days ahead" job. Occurrences that
// already have an active class for the coach at the same instant are
// skipped, so the job is idempotent day over day.
func (s *classService) GenerateFromGroup(ctx context.Context, in GenerateClassesInput) ([]models.Class, error) {
	group, err := s.groupRepo.FindByID(ctx, in.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "group", ID: in.GroupID}
		}
		return nil, err
	}
	if group.Status != models.GroupActive {
		return nil, &ValidationError{Field: "group_id", Reason: "group is not active"}
	}
	if group.SchedulePattern == nil {
		return nil, &ValidationError{Field: "group_id", Reason: "group has no schedule pattern"}
	}
	if in.DaysAhead <= 0 {
		return nil, &ValidationError{Field: "days_ahead", Reason: "must be positive"}
	}

	maxStudents := in.MaxStudents
	if maxStudents == 0 && group.MaxStudents != nil {
		maxStudents = *group.MaxStudents
	}
	name := in.Name
	if name == "" {
		name = group.Name
	}
	classType := in.Type
	if classType == "" {
		classType = models.ClassRegular
	}

	base := CreateClassInput{
		OrganizationID: group.OrganizationID,
		CoachID:        group.CoachID,
		CenterID:       group.CenterID,
		GroupID:        &group.ID,
		Name:           name,
		Location:       in.Location,
		DurationMin:    in.DurationMin,
		MaxStudents:    maxStudents,
		Type:           classType,
	}
	if err := s.validateCreate(base); err != nil {
		return nil, err
	}

	rangeEnd := in.StartDate.AddDate(0, 0, in.DaysAhead)
	occurrences, err := s.expander.Expand(*group.SchedulePattern, in.StartDate, rangeEnd)
	if err != nil {
		return nil, &ValidationError{Field: "schedule_pattern", Reason: err.Error()}
	}

	var created []models.Class
	for _, at := range occurrences {
		exists, err := s.classRepo.ExistsActiveAt(ctx, group.CoachID, at)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		if err := s.checkSchedulable(ctx, group.CenterID, at, in.DurationMin); err != nil {
			if errors.Is(err, ErrValidation) {
				s.logger.Warn("skipping unschedulable occurrence",
					zap.String("group_id", group.ID.String()),
					zap.Time("occurrence", at),
					zap.Error(err),
				)
				continue
			}
			return nil, err
		}

		class, err := s.createOne(ctx, base, at, false, nil)
		if err != nil {
			var conflict *schedule.ConflictError
			if errors.As(err, &conflict) {
				s.logger.Warn("skipping conflicting occurrence",
					zap.String("group_id", group.ID.String()),
					zap.Time("occurrence", at),
					zap.String("conflicting_class", conflict.ConflictingID.String()),
				)
				continue
			}
			return nil, err
		}
		s.emitClassEvent(ctx, class, "class.created")
		created = append(created, *class)
	}

	s.logger.Info("classes generated from group",
		zap.String("group_id", group.ID.String()),
		zap.Int("created", len(created)),
		zap.Int("occurrences", len(occurrences)),
	)
	return created, nil
}

// StartClass moves scheduled -> in_progress, valid at or after scheduled_at.
func (s *classService) StartClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	return s.transition(ctx, id, models.ClassInProgress, "class.started", func(class *models.Class) error {
		if time.Now().Before(class.ScheduledAt) {
			return &TransitionError{
				Entity: "class", ID: id,
				From: string(class.Status), To: string(models.ClassInProgress),
				Reason: "class has not reached its start time",
			}
		}
		return nil
	})
}

// CompleteClass moves in_progress -> completed, valid at or after end_time,
// then releases the calendar intervals.
func (s *classService) CompleteClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	class, err := s.transition(ctx, id, models.ClassCompleted, "class.completed", func(class *models.Class) error {
		if time.Now().Before(class.EndTime()) {
			return &TransitionError{
				Entity: "class", ID: id,
				From: string(class.Status), To: string(models.ClassCompleted),
				Reason: "class has not reached its end time",
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.releaseIntervals(class)
	return class, nil
}

// CancelClass cancels the class and cascades to every seat-holding booking
// in the same transaction: either the class and all its dependent bookings
// update, or none do. The calendar interval is released after commit.
func (s *classService) CancelClass(ctx context.Context, id uuid.UUID, reason string) (*models.Class, error) {
	now := time.Now().UTC()
	var class *models.Class
	var from models.ClassStatus
	var cascaded int64
	err := s.withRetry(ctx, func() error {
		class = nil
		return s.classRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			found, err := s.classRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "class", ID: id}
				}
				return err
			}
			if !found.CanTransition(models.ClassCancelled) {
				return &TransitionError{Entity: "class", ID: id, From: string(found.Status), To: string(models.ClassCancelled)}
			}
			from = found.Status

			cascaded, err = s.bookingRepo.CancelActiveByClass(ctx, tx, id, models.CancelReasonClassCancelled, now)
			if err != nil {
				return err
			}
			if err := s.classRepo.UpdateStatus(ctx, tx, id, models.ClassCancelled); err != nil {
				return err
			}
			found.Status = models.ClassCancelled
			class = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.releaseIntervals(class)
	metrics.CascadedCancellations.Add(float64(cascaded))

	s.emitter.Emit(ctx, audit.Event{
		Action:     "class.cancelled",
		EntityType: "class",
		EntityID:   class.ID,
		ActorID:    audit.ActorFrom(ctx),
		Before:     map[string]any{"status": string(from)},
		After: map[string]any{
			"status":            string(models.ClassCancelled),
			"reason":            reason,
			"cascaded_bookings": cascaded,
		},
	})
	s.logger.Info("class cancelled",
		zap.String("class_id", id.String()),
		zap.String("reason", reason),
		zap.Int64("cascaded_bookings", cascaded),
	)
	return class, nil
}

func (s *classService) GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	class, err := s.classRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "class", ID: id}
	}
	return class, err
}

func (s *classService) ClassOccupancy(ctx context.Context, id uuid.UUID) (*Occupancy, error) {
	class, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.bookingRepo.CountActiveByClass(ctx, s.bookingRepo.GetDB(), id)
	if err != nil {
		return nil, err
	}
	if int(count) > class.MaxStudents {
		return nil, &IntegrityError{Entity: "class", ID: id, Reason: "active bookings exceed max_students"}
	}
	return &Occupancy{
		Class:          class,
		ActiveBookings: count,
		SeatsAvailable: class.MaxStudents - int(count),
	}, nil
}

// RebuildCalendar reloads every active class into the in-memory index,
// typically at startup. Stored overlaps surface as a data-integrity fault.
func (s *classService) RebuildCalendar(ctx context.Context) error {
	classes, err := s.classRepo.FindActive(ctx)
	if err != nil {
		return err
	}
	entries := make(map[schedule.OwnerKey][]schedule.Interval)
	for i := range classes {
		class := &classes[i]
		iv := schedule.Interval{ClassID: class.ID, Start: class.ScheduledAt, End: class.EndTime()}
		for _, owner := range classOwners(class) {
			entries[owner] = append(entries[owner], iv)
		}
	}
	if err := s.calendar.Rebuild(entries); err != nil {
		var conflict *schedule.ConflictError
		if errors.As(err, &conflict) {
			return &IntegrityError{Entity: "class", ID: conflict.ClassID, Reason: conflict.Error()}
		}
		return err
	}
	return nil
}

func (s *classService) validateCreate(in CreateClassInput) error {
	switch {
	case in.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case in.CoachID == uuid.Nil:
		return &ValidationError{Field: "coach_id", Reason: "is required"}
	case in.OrganizationID == uuid.Nil:
		return &ValidationError{Field: "organization_id", Reason: "is required"}
	case in.DurationMin <= 0:
		return &ValidationError{Field: "duration", Reason: "must be positive"}
	case in.MaxStudents <= 0:
		return &ValidationError{Field: "max_students", Reason: "must be positive"}
	case !in.Type.Valid():
		return &ValidationError{Field: "type", Reason: "must be regular, workshop or special"}
	}
	return nil
}

// checkSchedulable enforces the holiday and center-working-hours bounds on a
// candidate slot.
func (s *classService) checkSchedulable(ctx context.Context, centerID *uuid.UUID, at time.Time, durationMin int) error {
	if s.holidays.IsHoliday(at, s.locale.Country, s.locale.State) {
		return &ValidationError{Field: "scheduled_at", Reason: "falls on a holiday"}
	}
	if centerID == nil {
		return nil
	}
	center, err := s.centerRepo.FindByID(ctx, *centerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "center", ID: *centerID}
		}
		return err
	}
	if center.Status != models.CenterActive {
		return &ValidationError{Field: "center_id", Reason: "center is not active"}
	}
	end := at.Add(time.Duration(durationMin) * time.Minute)
	if !center.IsOpenDuring(at, end) {
		return &ValidationError{Field: "scheduled_at", Reason: "outside center working hours"}
	}
	return nil
}

type reservation struct {
	owner   schedule.OwnerKey
	classID uuid.UUID
}

// reserve claims the class's interval on every owning calendar, releasing
// partial claims on conflict.
func (s *classService) reserve(class *models.Class) ([]reservation, error) {
	start, end := class.ScheduledAt, class.EndTime()
	var claimed []reservation
	for _, owner := range classOwners(class) {
		if err := s.calendar.Insert(owner, class.ID, start, end); err != nil {
			for _, r := range claimed {
				s.calendar.Remove(r.owner, r.classID)
			}
			return nil, err
		}
		claimed = append(claimed, reservation{owner: owner, classID: class.ID})
	}
	return claimed, nil
}

func (s *classService) createOne(ctx context.Context, in CreateClassInput, at time.Time, recurring bool, pattern *models.RecurrencePattern) (*models.Class, error) {
	class := s.buildClass(in, at, recurring, pattern)

	reserved, err := s.reserve(class)
	if err != nil {
		metrics.ScheduleConflicts.Inc()
		return nil, err
	}

	err = s.withRetry(ctx, func() error {
		return s.classRepo.Create(ctx, s.classRepo.GetDB(), class)
	})
	if err != nil {
		for _, r := range reserved {
			s.calendar.Remove(r.owner, r.classID)
		}
		return nil, err
	}
	return class, nil
}

func (s *classService) buildClass(in CreateClassInput, at time.Time, recurring bool, pattern *models.RecurrencePattern) *models.Class {
	return &models.Class{
		ID:                uuid.New(),
		OrganizationID:    in.OrganizationID,
		CoachID:           in.CoachID,
		CenterID:          in.CenterID,
		GroupID:           in.GroupID,
		Name:              in.Name,
		Description:       in.Description,
		Location:          in.Location,
		ScheduledAt:       at,
		DurationMin:       in.DurationMin,
		MaxStudents:       in.MaxStudents,
		Type:              in.Type,
		Status:            models.ClassScheduled,
		Recurring:         recurring,
		RecurringPattern:  pattern,
		EquipmentRequired: datatypes.NewJSONSlice(in.Equipment),
		Metadata:          datatypes.JSONMap(in.Metadata),
	}
}

func (s *classService) transition(ctx context.Context, id uuid.UUID, to models.ClassStatus, action string, guard func(*models.Class) error) (*models.Class, error) {
	var class *models.Class
	var from models.ClassStatus
	err := s.withRetry(ctx, func() error {
		class = nil
		return s.classRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			found, err := s.classRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "class", ID: id}
				}
				return err
			}
			if !found.CanTransition(to) {
				return &TransitionError{Entity: "class", ID: id, From: string(found.Status), To: string(to)}
			}
			if err := guard(found); err != nil {
				return err
			}
			from = found.Status
			if err := s.classRepo.UpdateStatus(ctx, tx, id, to); err != nil {
				return err
			}
			found.Status = to
			class = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, audit.Event{
		Action:     action,
		EntityType: "class",
		EntityID:   class.ID,
		ActorID:    audit.ActorFrom(ctx),
		Before:     map[string]any{"status": string(from)},
		After:      map[string]any{"status": string(to)},
	})
	return class, nil
}

func (s *classService) releaseIntervals(class *models.Class) {
	for _, owner := range classOwners(class) {
		s.calendar.Remove(owner, class.ID)
	}
}

func classOwners(class *models.Class) []schedule.OwnerKey {
	owners := []schedule.OwnerKey{schedule.CoachKey(class.CoachID)}
	if class.CenterID != nil {
		owners = append(owners, schedule.CenterKey(*class.CenterID))
	}
	if class.GroupID != nil {
		owners = append(owners, schedule.GroupKey(*class.GroupID))
	}
	return owners
}

func (s *classService) emitClassEvent(ctx context.Context, class *models.Class, action string) {
	s.emitter.Emit(ctx, audit.Event{
		Action:     action,
		EntityType: "class",
		EntityID:   class.ID,
		ActorID:    audit.ActorFrom(ctx),
		After: map[string]any{
			"status":       string(class.Status),
			"coach_id":     class.CoachID.String(),
			"scheduled_at": class.ScheduledAt,
		},
	})
}

func (s *classService) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(s.retryConf.Attempts),
		retry.Delay(s.retryConf.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.Context(ctx),
	)
}
