package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type BookingType string

const (
	BookingRegular BookingType = "regular"
	BookingTrial   BookingType = "trial"
	BookingOneTime BookingType = "one_time"
)

func (t BookingType) Valid() bool {
	switch t {
	case BookingRegular, BookingTrial, BookingOneTime:
		return true
	}
	return false
}

const (
	PaymentPaid = "paid"

	// CancelReasonClassCancelled marks bookings cancelled by the class cascade.
	CancelReasonClassCancelled = "class_cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

type Booking struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ClassID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"class_id"`
	StudentID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"student_id"`
	OrganizationID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"organization_id"`
	Status             BookingStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	BookingType        BookingType       `gorm:"type:varchar(20);not null;default:'regular'" json:"booking_type"`
	ScheduledAt        time.Time         `gorm:"not null" json:"scheduled_at"`
	Amount             *decimal.Decimal  `gorm:"type:numeric(12,2)" json:"amount,omitempty"`
	PaymentStatus      string            `json:"payment_status,omitempty"`
	PaymentID          *uuid.UUID        `gorm:"type:uuid" json:"payment_id,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	CancellationTime   *time.Time        `json:"cancellation_time,omitempty"`
	IdempotencyKey     string            `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	Notes              string            `json:"notes,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsActive reports whether the booking counts against the class capacity.
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

func (b *Booking) IsTerminal() bool {
	return b.Status == BookingCancelled || b.Status == BookingCompleted
}

func (b *Booking) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[b.Status] {
		if next == to {
			return true
		}
	}
	return false
}
