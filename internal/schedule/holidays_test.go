package schedule

import (
	"testing"
	"time"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestHolidayRegistry_CountryScope(t *testing.T) {
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	registry := NewHolidayRegistry([]models.Holiday{
		{ID: uuid.New(), Name: "Independence Day", Date: date, Country: "IN"},
	})

	assert.True(t, registry.IsHoliday(date, "IN", ""))
	assert.True(t, registry.IsHoliday(date, "in", "KA"), "stateless record matches any state")
	assert.False(t, registry.IsHoliday(date, "US", ""))
	assert.False(t, registry.IsHoliday(date.AddDate(0, 0, 1), "IN", ""))
}

func TestHolidayRegistry_StateScope(t *testing.T) {
	date := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	state := "KA"
	registry := NewHolidayRegistry([]models.Holiday{
		{ID: uuid.New(), Name: "Rajyotsava", Date: date, Country: "IN", State: &state},
	})

	assert.True(t, registry.IsHoliday(date, "IN", "KA"))
	assert.False(t, registry.IsHoliday(date, "IN", "MH"), "stated record needs exact match")
	assert.False(t, registry.IsHoliday(date, "IN", ""))
}

func TestHolidayRegistry_ObservanceShift(t *testing.T) {
	// Saturday; observed the following Monday
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	registry := NewHolidayRegistry([]models.Holiday{
		{
			ID: uuid.New(), Name: "Founders Day", Date: saturday, Country: "IN",
			ObservanceRules: datatypes.JSONMap{"shift_to_next_working_day": true},
		},
	})

	monday := saturday.AddDate(0, 0, 2)
	assert.False(t, registry.IsHoliday(saturday, "IN", ""))
	assert.True(t, registry.IsHoliday(monday, "IN", ""))
}

func TestHolidayRegistry_OffsetInstantResolvesToUTCDay(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	registry := NewHolidayRegistry([]models.Holiday{
		{ID: uuid.New(), Name: "Holi", Date: date, Country: "IN"},
	})

	ist := time.FixedZone("IST", 5*3600+1800)
	assert.True(t, registry.IsHoliday(time.Date(2026, 3, 2, 18, 0, 0, 0, ist), "IN", ""),
		"18:00+05:30 is still March 2 in UTC")
	assert.False(t, registry.IsHoliday(time.Date(2026, 3, 2, 2, 0, 0, 0, ist), "IN", ""),
		"02:00+05:30 is March 1 in UTC")
}

func TestHolidayRegistry_Add(t *testing.T) {
	registry := NewHolidayRegistry(nil)
	date := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	assert.False(t, registry.IsHoliday(date, "IN", ""))

	registry.Add(&models.Holiday{ID: uuid.New(), Name: "Gandhi Jayanti", Date: date, Country: "IN"})
	assert.True(t, registry.IsHoliday(date, "IN", ""))
	assert.Equal(t, 1, registry.Len())
}

func TestHoliday_ObservedDateUnshifted(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	h := models.Holiday{ID: uuid.New(), Name: "Fixed", Date: sunday, Country: "IN"}
	assert.Equal(t, sunday, h.ObservedDate(), "no rule, no shift")
}
