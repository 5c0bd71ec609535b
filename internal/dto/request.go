package dto

import (
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecurrencePatternRequest struct {
	Frequency string     `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Interval  int        `json:"interval" validate:"omitempty,min=1"`
	Weekdays  []int      `json:"weekdays" validate:"omitempty,dive,min=0,max=6"`
	Count     int        `json:"count" validate:"omitempty,min=1"`
	Until     *time.Time `json:"until"`
}

func (r *RecurrencePatternRequest) ToModel() models.RecurrencePattern {
	return models.RecurrencePattern{
		Frequency: r.Frequency,
		Interval:  r.Interval,
		Weekdays:  r.Weekdays,
		Count:     r.Count,
		Until:     r.Until,
	}
}

type CreateClassRequest struct {
	OrganizationID uuid.UUID      `json:"organization_id" validate:"required"`
	CoachID        uuid.UUID      `json:"coach_id" validate:"required"`
	CenterID       *uuid.UUID     `json:"center_id"`
	GroupID        *uuid.UUID     `json:"group_id"`
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	ScheduledAt    time.Time      `json:"scheduled_at" validate:"required"`
	Duration       int            `json:"duration" validate:"required,min=1"`
	MaxStudents    int            `json:"max_students" validate:"required,min=1"`
	Type           string         `json:"type" validate:"omitempty,oneof=regular workshop special"`
	Equipment      []string       `json:"equipment_required"`
	Metadata       map[string]any `json:"metadata"`
}

type CreateRecurringClassRequest struct {
	CreateClassRequest
	Pattern  RecurrencePatternRequest `json:"recurring_pattern" validate:"required"`
	RangeEnd time.Time                `json:"range_end" validate:"required"`
}

type CancelClassRequest struct {
	Reason string `json:"reason"`
}

type CreateBookingRequest struct {
	StudentID     uuid.UUID        `json:"student_id" validate:"required"`
	BookingType   string           `json:"booking_type" validate:"omitempty,oneof=regular trial one_time"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentStatus string           `json:"payment_status"`
	PaymentID     *uuid.UUID       `json:"payment_id"`
	Notes         string           `json:"notes"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type CreateGroupRequest struct {
	OrganizationID  uuid.UUID                 `json:"organization_id" validate:"required"`
	CoachID         uuid.UUID                 `json:"coach_id" validate:"required"`
	CenterID        *uuid.UUID                `json:"center_id"`
	Name            string                    `json:"name" validate:"required"`
	Description     string                    `json:"description"`
	Type            string                    `json:"type" validate:"omitempty,oneof=batch team class_group"`
	MaxStudents     *int                      `json:"max_students" validate:"omitempty,min=1"`
	Level           string                    `json:"level"`
	AgeGroup        string                    `json:"age_group"`
	SchedulePattern *RecurrencePatternRequest `json:"schedule_pattern"`
	Equipment       []string                  `json:"equipment_required"`
	Metadata        map[string]any            `json:"metadata"`
}

type AddMemberRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

type GroupStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive archived"`
}

type GenerateClassesRequest struct {
	StartDate   time.Time `json:"start_date" validate:"required"`
	DaysAhead   int       `json:"days_ahead" validate:"required,min=1"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Duration    int       `json:"duration" validate:"required,min=1"`
	MaxStudents int       `json:"max_students" validate:"omitempty,min=1"`
	Type        string    `json:"type" validate:"omitempty,oneof=regular workshop special"`
}
