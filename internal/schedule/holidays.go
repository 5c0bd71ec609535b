package schedule

import (
	"strings"
	"sync"
	"time"

	"github.com/coachhub/scheduler/internal/models"
)

const dateKeyLayout = "2006-01-02"

type holidayScope struct {
	country  string
	state    string
	hasState bool
}

// HolidayRegistry is a lookup of non-working dates, keyed by the observed
// date (observance rules applied at insert). Bulk-loaded at startup and
// appended to when the holiday feed delivers new records. Safe for
// concurrent use.
type HolidayRegistry struct {
	mu     sync.RWMutex
	byDate map[string][]holidayScope
}

func NewHolidayRegistry(holidays []models.Holiday) *HolidayRegistry {
	r := &HolidayRegistry{byDate: make(map[string][]holidayScope, len(holidays))}
	for i := range holidays {
		r.add(&holidays[i])
	}
	return r
}

// Add registers one holiday, typically from the feed consumer.
func (r *HolidayRegistry) Add(h *models.Holiday) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(h)
}

func (r *HolidayRegistry) add(h *models.Holiday) {
	scope := holidayScope{country: strings.ToUpper(h.Country)}
	if h.State != nil && *h.State != "" {
		scope.state = strings.ToUpper(*h.State)
		scope.hasState = true
	}
	key := h.ObservedDate().UTC().Format(dateKeyLayout)
	r.byDate[key] = append(r.byDate[key], scope)
}

// IsHoliday reports whether the given instant falls on an observed holiday
// for the country and state. The instant is resolved to its UTC calendar day
// to match the stored dates, whatever offset it arrives with. Records without
// a state match any state; records with a state require an exact match.
func (r *HolidayRegistry) IsHoliday(day time.Time, country, state string) bool {
	country = strings.ToUpper(country)
	state = strings.ToUpper(state)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, scope := range r.byDate[day.UTC().Format(dateKeyLayout)] {
		if scope.country != country {
			continue
		}
		if !scope.hasState || scope.state == state {
			return true
		}
	}
	return false
}

// Len returns the number of distinct holiday dates loaded.
func (r *HolidayRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byDate)
}
