package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ClassType string

const (
	ClassRegular  ClassType = "regular"
	ClassWorkshop ClassType = "workshop"
	ClassSpecial  ClassType = "special"
)

func (t ClassType) Valid() bool {
	switch t {
	case ClassRegular, ClassWorkshop, ClassSpecial:
		return true
	}
	return false
}

type ClassStatus string

const (
	ClassScheduled  ClassStatus = "scheduled"
	ClassInProgress ClassStatus = "in_progress"
	ClassCompleted  ClassStatus = "completed"
	ClassCancelled  ClassStatus = "cancelled"
)

var classTransitions = map[ClassStatus][]ClassStatus{
	ClassScheduled:  {ClassInProgress, ClassCancelled},
	ClassInProgress: {ClassCompleted, ClassCancelled},
}

// RecurrencePattern describes how a recurring class repeats. Weekdays use
// 0=Monday .. 6=Sunday. Count and Until are alternative end conditions;
// whichever is hit first terminates the series.
type RecurrencePattern struct {
	Frequency string     `json:"frequency"` // daily, weekly, monthly
	Interval  int        `json:"interval,omitempty"`
	Weekdays  []int      `json:"weekdays,omitempty"`
	Count     int        `json:"count,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

func (p RecurrencePattern) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *RecurrencePattern) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return fmt.Errorf("unsupported type %T for RecurrencePattern", value)
}

type Class struct {
	ID                uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID    uuid.UUID                  `gorm:"type:uuid;not null;index" json:"organization_id"`
	CoachID           uuid.UUID                  `gorm:"type:uuid;not null;index" json:"coach_id"`
	CenterID          *uuid.UUID                 `gorm:"type:uuid;index" json:"center_id,omitempty"`
	GroupID           *uuid.UUID                 `gorm:"type:uuid;index" json:"group_id,omitempty"`
	Name              string                     `gorm:"not null" json:"name"`
	Description       string                     `json:"description,omitempty"`
	ScheduledAt       time.Time                  `gorm:"not null;index" json:"scheduled_at"`
	DurationMin       int                        `gorm:"not null" json:"duration"`
	MaxStudents       int                        `gorm:"not null" json:"max_students"`
	Type              ClassType                  `gorm:"type:varchar(20);not null;default:'regular'" json:"type"`
	Status            ClassStatus                `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	Recurring         bool                       `gorm:"not null;default:false" json:"recurring"`
	RecurringPattern  *RecurrencePattern         `gorm:"type:jsonb" json:"recurring_pattern,omitempty"`
	Location          string                     `json:"location,omitempty"`
	EquipmentRequired datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"equipment_required,omitempty"`
	Metadata          datatypes.JSONMap          `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// EndTime is always derived from ScheduledAt and DurationMin, never stored.
func (c *Class) EndTime() time.Time {
	return c.ScheduledAt.Add(time.Duration(c.DurationMin) * time.Minute)
}

// IsActive reports whether the class still occupies its calendar interval.
func (c *Class) IsActive() bool {
	return c.Status == ClassScheduled || c.Status == ClassInProgress
}

func (c *Class) IsTerminal() bool {
	return c.Status == ClassCompleted || c.Status == ClassCancelled
}

func (c *Class) CanTransition(to ClassStatus) bool {
	for _, next := range classTransitions[c.Status] {
		if next == to {
			return true
		}
	}
	return false
}
