package service

import (
	"context"
	"errors"

	retry "github.com/avast/retry-go"
	"github.com/coachhub/scheduler/internal/audit"
	"github.com/coachhub/scheduler/internal/models"
	"github.com/coachhub/scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateGroupInput struct {
	OrganizationID  uuid.UUID
	CoachID         uuid.UUID
	CenterID        *uuid.UUID
	Name            string
	Description     string
	Type            models.GroupType
	MaxStudents     *int
	Level           string
	AgeGroup        string
	SchedulePattern *models.RecurrencePattern
	Equipment       []string
	Metadata        map[string]any
}

type GroupService interface {
	CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	AddMember(ctx context.Context, groupID, studentID uuid.UUID) (*models.Group, error)
	RemoveMember(ctx context.Context, groupID, studentID uuid.UUID) (*models.Group, error)
	TransitionGroup(ctx context.Context, id uuid.UUID, to models.GroupStatus) (*models.Group, error)
	CanJoinGroup(ctx context.Context, groupID, studentID uuid.UUID) error
}

type groupService struct {
	groupRepo repository.GroupRepository
	retryConf RetryConfig
	emitter   audit.Emitter
	logger    *zap.Logger
}

func NewGroupService(groupRepo repository.GroupRepository, retryConf RetryConfig, emitter audit.Emitter, logger *zap.Logger) GroupService {
	return &groupService{
		groupRepo: groupRepo,
		retryConf: retryConf,
		emitter:   emitter,
		logger:    logger,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	switch {
	case in.Name == "":
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	case in.CoachID == uuid.Nil:
		return nil, &ValidationError{Field: "coach_id", Reason: "is required"}
	case in.OrganizationID == uuid.Nil:
		return nil, &ValidationError{Field: "organization_id", Reason: "is required"}
	case in.MaxStudents != nil && *in.MaxStudents <= 0:
		return nil, &ValidationError{Field: "max_students", Reason: "must be positive when set"}
	}
	groupType := in.Type
	if groupType == "" {
		groupType = models.GroupBatch
	}
	if !groupType.Valid() {
		return nil, &ValidationError{Field: "type", Reason: "must be batch, team or class_group"}
	}

	group := &models.Group{
		ID:                uuid.New(),
		OrganizationID:    in.OrganizationID,
		CoachID:           in.CoachID,
		CenterID:          in.CenterID,
		Name:              in.Name,
		Description:       in.Description,
		Type:              groupType,
		Status:            models.GroupActive,
		MaxStudents:       in.MaxStudents,
		Level:             in.Level,
		AgeGroup:          in.AgeGroup,
		SchedulePattern:   in.SchedulePattern,
		Members:           datatypes.NewJSONSlice([]uuid.UUID{}),
		EquipmentRequired: datatypes.NewJSONSlice(in.Equipment),
		Metadata:          datatypes.JSONMap(in.Metadata),
	}
	if err := s.withRetry(ctx, func() error {
		return s.groupRepo.Create(ctx, group)
	}); err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, audit.Event{
		Action:     "group.created",
		EntityType: "group",
		EntityID:   group.ID,
		ActorID:    audit.ActorFrom(ctx),
		After: map[string]any{
			"status":   string(group.Status),
			"coach_id": group.CoachID.String(),
		},
	})
	s.logger.Info("group created",
		zap.String("group_id", group.ID.String()),
		zap.String("coach_id", group.CoachID.String()),
	)
	return group, nil
}

func (s *groupService) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "group", ID: id}
	}
	return group, err
}

// AddMember admits a student under the group's row lock so concurrent joins
// against the last seat serialize. A stored member list already over
// max_students is refused as corrupt rather than grown further.
func (s *groupService) AddMember(ctx context.Context, groupID, studentID uuid.UUID) (*models.Group, error) {
	if studentID == uuid.Nil {
		return nil, &ValidationError{Field: "student_id", Reason: "is required"}
	}

	var group *models.Group
	err := s.withRetry(ctx, func() error {
		group = nil
		return s.groupRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			found, err := s.groupRepo.FindByIDForUpdate(ctx, tx, groupID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "group", ID: groupID}
				}
				return err
			}
			if found.OverCapacity() {
				return &IntegrityError{Entity: "group", ID: groupID, Reason: "member list exceeds max_students"}
			}
			if found.Status != models.GroupActive {
				return &ValidationError{Field: "group_id", Reason: "group is not active"}
			}
			if found.HasMember(studentID) {
				return ErrAlreadyMember
			}
			if !found.HasCapacity() {
				return &CapacityError{Entity: "group", ID: groupID, Max: *found.MaxStudents}
			}

			members := append([]uuid.UUID(found.Members), studentID)
			if err := s.groupRepo.UpdateMembers(ctx, tx, groupID, members); err != nil {
				return err
			}
			found.Members = datatypes.NewJSONSlice(members)
			group = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitMembership(ctx, group, studentID, "group.member_added")
	s.logger.Info("group member added",
		zap.String("group_id", groupID.String()),
		zap.String("student_id", studentID.String()),
		zap.Int("size", group.CurrentSize()),
	)
	return group, nil
}

// RemoveMember always succeeds for a present member, whatever the group's
// status; leaving must stay possible even from inactive or archived groups.
func (s *groupService) RemoveMember(ctx context.Context, groupID, studentID uuid.UUID) (*models.Group, error) {
	var group *models.Group
	err := s.withRetry(ctx, func() error {
		group = nil
		return s.groupRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			found, err := s.groupRepo.FindByIDForUpdate(ctx, tx, groupID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "group", ID: groupID}
				}
				return err
			}
			if !found.HasMember(studentID) {
				return &NotFoundError{Entity: "group member", ID: studentID}
			}

			members := make([]uuid.UUID, 0, len(found.Members)-1)
			for _, m := range found.Members {
				if m != studentID {
					members = append(members, m)
				}
			}
			if err := s.groupRepo.UpdateMembers(ctx, tx, groupID, members); err != nil {
				return err
			}
			found.Members = datatypes.NewJSONSlice(members)
			group = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitMembership(ctx, group, studentID, "group.member_removed")
	s.logger.Info("group member removed",
		zap.String("group_id", groupID.String()),
		zap.String("student_id", studentID.String()),
		zap.Int("size", group.CurrentSize()),
	)
	return group, nil
}

func (s *groupService) TransitionGroup(ctx context.Context, id uuid.UUID, to models.GroupStatus) (*models.Group, error) {
	var group *models.Group
	var from models.GroupStatus
	err := s.withRetry(ctx, func() error {
		group = nil
		return s.groupRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			found, err := s.groupRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "group", ID: id}
				}
				return err
			}
			if !found.CanTransition(to) {
				return &TransitionError{Entity: "group", ID: id, From: string(found.Status), To: string(to)}
			}
			from = found.Status
			if err := s.groupRepo.UpdateStatus(ctx, tx, id, to); err != nil {
				return err
			}
			found.Status = to
			group = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, audit.Event{
		Action:     "group.status_changed",
		EntityType: "group",
		EntityID:   id,
		ActorID:    audit.ActorFrom(ctx),
		Before:     map[string]any{"status": string(from)},
		After:      map[string]any{"status": string(to)},
	})
	s.logger.Info("group status changed",
		zap.String("group_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return group, nil
}

// CanJoinGroup is the read-only admission probe; the answer can go stale the
// moment it returns.
func (s *groupService) CanJoinGroup(ctx context.Context, groupID, studentID uuid.UUID) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OverCapacity() {
		return &IntegrityError{Entity: "group", ID: groupID, Reason: "member list exceeds max_students"}
	}
	if group.Status != models.GroupActive {
		return &ValidationError{Field: "group_id", Reason: "group is not active"}
	}
	if group.HasMember(studentID) {
		return ErrAlreadyMember
	}
	if !group.HasCapacity() {
		return &CapacityError{Entity: "group", ID: groupID, Max: *group.MaxStudents}
	}
	return nil
}

func (s *groupService) emitMembership(ctx context.Context, group *models.Group, studentID uuid.UUID, action string) {
	s.emitter.Emit(ctx, audit.Event{
		Action:     action,
		EntityType: "group",
		EntityID:   group.ID,
		ActorID:    audit.ActorFrom(ctx),
		After: map[string]any{
			"student_id": studentID.String(),
			"size":       group.CurrentSize(),
		},
	})
}

func (s *groupService) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(s.retryConf.Attempts),
		retry.Delay(s.retryConf.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.Context(ctx),
	)
}
