package dto

import (
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ClassResponse struct {
	ID             uuid.UUID                 `json:"id"`
	OrganizationID uuid.UUID                 `json:"organization_id"`
	CoachID        uuid.UUID                 `json:"coach_id"`
	CenterID       *uuid.UUID                `json:"center_id,omitempty"`
	GroupID        *uuid.UUID                `json:"group_id,omitempty"`
	Name           string                    `json:"name"`
	Location       string                    `json:"location,omitempty"`
	ScheduledAt    time.Time                 `json:"scheduled_at"`
	EndTime        time.Time                 `json:"end_time"`
	Duration       int                       `json:"duration"`
	MaxStudents    int                       `json:"max_students"`
	Type           models.ClassType          `json:"type"`
	Status         models.ClassStatus        `json:"status"`
	Recurring      bool                      `json:"recurring"`
	Pattern        *models.RecurrencePattern `json:"recurring_pattern,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

type ClassStatusResponse struct {
	ClassResponse
	ActiveBookings int64 `json:"active_bookings"`
	SeatsAvailable int   `json:"seats_available"`
}

type BookingResponse struct {
	ID                 uuid.UUID            `json:"id"`
	ClassID            uuid.UUID            `json:"class_id"`
	StudentID          uuid.UUID            `json:"student_id"`
	Status             models.BookingStatus `json:"status"`
	BookingType        models.BookingType   `json:"booking_type"`
	ScheduledAt        time.Time            `json:"scheduled_at"`
	Amount             *decimal.Decimal     `json:"amount,omitempty"`
	PaymentStatus      string               `json:"payment_status,omitempty"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	CancellationTime   *time.Time           `json:"cancellation_time,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

type GroupResponse struct {
	ID             uuid.UUID                 `json:"id"`
	OrganizationID uuid.UUID                 `json:"organization_id"`
	CoachID        uuid.UUID                 `json:"coach_id"`
	CenterID       *uuid.UUID                `json:"center_id,omitempty"`
	Name           string                    `json:"name"`
	Type           models.GroupType          `json:"type"`
	Status         models.GroupStatus        `json:"status"`
	MaxStudents    *int                      `json:"max_students,omitempty"`
	Members        []uuid.UUID               `json:"members"`
	CurrentSize    int                       `json:"current_size"`
	Pattern        *models.RecurrencePattern `json:"schedule_pattern,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToClassResponse(c *models.Class) ClassResponse {
	return ClassResponse{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		CoachID:        c.CoachID,
		CenterID:       c.CenterID,
		GroupID:        c.GroupID,
		Name:           c.Name,
		Location:       c.Location,
		ScheduledAt:    c.ScheduledAt,
		EndTime:        c.EndTime(),
		Duration:       c.DurationMin,
		MaxStudents:    c.MaxStudents,
		Type:           c.Type,
		Status:         c.Status,
		Recurring:      c.Recurring,
		Pattern:        c.RecurringPattern,
		CreatedAt:      c.CreatedAt,
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		ClassID:            b.ClassID,
		StudentID:          b.StudentID,
		Status:             b.Status,
		BookingType:        b.BookingType,
		ScheduledAt:        b.ScheduledAt,
		Amount:             b.Amount,
		PaymentStatus:      b.PaymentStatus,
		CancellationReason: b.CancellationReason,
		CancellationTime:   b.CancellationTime,
		CreatedAt:          b.CreatedAt,
	}
}

func ToGroupResponse(g *models.Group) GroupResponse {
	return GroupResponse{
		ID:             g.ID,
		OrganizationID: g.OrganizationID,
		CoachID:        g.CoachID,
		CenterID:       g.CenterID,
		Name:           g.Name,
		Type:           g.Type,
		Status:         g.Status,
		MaxStudents:    g.MaxStudents,
		Members:        g.Members,
		CurrentSize:    g.CurrentSize(),
		Pattern:        g.SchedulePattern,
		CreatedAt:      g.CreatedAt,
	}
}
