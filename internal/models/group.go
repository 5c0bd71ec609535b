package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GroupType string

const (
	GroupBatch      GroupType = "batch"
	GroupTeam       GroupType = "team"
	GroupClassGroup GroupType = "class_group"
)

func (t GroupType) Valid() bool {
	switch t {
	case GroupBatch, GroupTeam, GroupClassGroup:
		return true
	}
	return false
}

type GroupStatus string

const (
	GroupActive   GroupStatus = "active"
	GroupInactive GroupStatus = "inactive"
	GroupArchived GroupStatus = "archived"
)

var groupTransitions = map[GroupStatus][]GroupStatus{
	GroupActive:   {GroupInactive, GroupArchived},
	GroupInactive: {GroupActive, GroupArchived},
}

type Group struct {
	ID                uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID    uuid.UUID                      `gorm:"type:uuid;not null;index" json:"organization_id"`
	CoachID           uuid.UUID                      `gorm:"type:uuid;not null;index" json:"coach_id"`
	CenterID          *uuid.UUID                     `gorm:"type:uuid;index" json:"center_id,omitempty"`
	Name              string                         `gorm:"not null" json:"name"`
	Description       string                         `json:"description,omitempty"`
	Type              GroupType                      `gorm:"type:varchar(20);not null;default:'batch'" json:"type"`
	Status            GroupStatus                    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	MaxStudents       *int                           `json:"max_students,omitempty"`
	Level             string                         `json:"level,omitempty"`
	AgeGroup          string                         `json:"age_group,omitempty"`
	SchedulePattern   *RecurrencePattern             `gorm:"type:jsonb" json:"schedule_pattern,omitempty"`
	Members           datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb" json:"members"`
	EquipmentRequired datatypes.JSONSlice[string]    `gorm:"type:jsonb" json:"equipment_required,omitempty"`
	Metadata          datatypes.JSONMap              `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time                      `json:"created_at"`
	UpdatedAt         time.Time                      `json:"updated_at"`
}

func (g *Group) CurrentSize() int {
	return len(g.Members)
}

// HasCapacity is true when the group is unbounded or has a free seat.
func (g *Group) HasCapacity() bool {
	return g.MaxStudents == nil || len(g.Members) < *g.MaxStudents
}

// OverCapacity means a stored member list already violates max_students.
// Loaded records in this state are a data-integrity fault, not a valid group.
func (g *Group) OverCapacity() bool {
	return g.MaxStudents != nil && len(g.Members) > *g.MaxStudents
}

func (g *Group) HasMember(studentID uuid.UUID) bool {
	for _, m := range g.Members {
		if m == studentID {
			return true
		}
	}
	return false
}

func (g *Group) IsTerminal() bool {
	return g.Status == GroupArchived
}

func (g *Group) CanTransition(to GroupStatus) bool {
	for _, next := range groupTransitions[g.Status] {
		if next == to {
			return true
		}
	}
	return false
}
