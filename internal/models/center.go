package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CenterType string

const (
	CenterMain   CenterType = "main"
	CenterBranch CenterType = "branch"
)

type CenterStatus string

const (
	CenterActive   CenterStatus = "active"
	CenterInactive CenterStatus = "inactive"
)

// TimeWindow is an opening window in wall-clock "15:04" form.
type TimeWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WorkingHours maps lowercase weekday names ("monday") to opening windows.
// An empty map means the center has no hour restrictions; a missing day
// means the center is closed that day.
type WorkingHours map[string]TimeWindow

func (w WorkingHours) Value() (driver.Value, error) {
	return json.Marshal(w)
}

func (w *WorkingHours) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	}
	return fmt.Errorf("unsupported type %T for WorkingHours", value)
}

type Center struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string            `gorm:"not null" json:"name"`
	Type           CenterType        `gorm:"type:varchar(20);not null;default:'branch'" json:"type"`
	Status         CenterStatus      `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Address        datatypes.JSONMap `gorm:"type:jsonb" json:"address,omitempty"`
	ContactPhone   string            `json:"contact_phone,omitempty"`
	Capacity       *int              `json:"capacity,omitempty"`
	WorkingHours   WorkingHours      `gorm:"type:jsonb" json:"working_hours,omitempty"`
	Description    string            `json:"description,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsOpenDuring reports whether [start, end) fits inside the center's working
// window for that day. Intervals crossing midnight never fit.
func (c *Center) IsOpenDuring(start, end time.Time) bool {
	if len(c.WorkingHours) == 0 {
		return true
	}
	if start.YearDay() != end.YearDay() || start.Year() != end.Year() {
		// allow an interval ending exactly at midnight
		if !(end.Hour() == 0 && end.Minute() == 0 && end.AddDate(0, 0, -1).YearDay() == start.YearDay()) {
			return false
		}
	}
	win, ok := c.WorkingHours[strings.ToLower(start.Weekday().String())]
	if !ok {
		return false
	}
	open, err := minutesOfDay(win.Open)
	if err != nil {
		return false
	}
	closeAt, err := minutesOfDay(win.Close)
	if err != nil {
		return false
	}
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if endMin == 0 {
		endMin = 24 * 60
	}
	return startMin >= open && endMin <= closeAt
}

func minutesOfDay(clock string) (int, error) {
	// "24:00" marks a close at end of day
	if clock == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
