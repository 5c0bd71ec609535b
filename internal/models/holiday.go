package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type HolidayType string

const (
	HolidayPublic    HolidayType = "public"
	HolidayReligious HolidayType = "religious"
	HolidayLocal     HolidayType = "local"
)

// Holiday is read-only for the scheduling engine; rows are loaded into a
// HolidayRegistry and consulted during validation and recurrence expansion.
type Holiday struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string            `gorm:"not null" json:"name"`
	Date            time.Time         `gorm:"type:date;not null;index:idx_holiday_country_date" json:"date"`
	Type            HolidayType       `gorm:"type:varchar(20);not null;default:'public'" json:"type"`
	Country         string            `gorm:"type:varchar(2);not null;index:idx_holiday_country_date" json:"country"`
	State           *string           `json:"state,omitempty"`
	Description     string            `json:"description,omitempty"`
	ObservanceRules datatypes.JSONMap `gorm:"type:jsonb" json:"observance_rules,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ObservedDate applies observance rules to the nominal date. The only rule
// the engine interprets is shift_to_next_working_day, which moves a holiday
// falling on a weekend to the following Monday.
func (h *Holiday) ObservedDate() time.Time {
	d := h.Date
	if shift, ok := h.ObservanceRules["shift_to_next_working_day"].(bool); ok && shift {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
	}
	return d
}
