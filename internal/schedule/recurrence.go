package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/coachhub/scheduler/internal/models"
)

// HolidayPolicy decides what happens to a recurring occurrence that lands on
// a holiday.
type HolidayPolicy string

const (
	// HolidayPolicyDrop omits the occurrence entirely.
	HolidayPolicyDrop HolidayPolicy = "drop"
	// HolidayPolicyShift moves the occurrence to the next day that is
	// neither a holiday nor another occurrence of the expansion, keeping its
	// time of day. An occurrence that would shift past the range is dropped.
	HolidayPolicyShift HolidayPolicy = "shift"
)

const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// Expander turns recurrence patterns into concrete occurrence instants.
// Expansion is deterministic: the same pattern and range always produce the
// same sequence.
type Expander struct {
	registry *HolidayRegistry
	policy   HolidayPolicy
	country  string
	state    string
}

func NewExpander(registry *HolidayRegistry, policy HolidayPolicy, country, state string) *Expander {
	if policy == "" {
		policy = HolidayPolicyDrop
	}
	return &Expander{registry: registry, policy: policy, country: country, state: state}
}

// Expand produces the occurrence instants of pattern anchored at rangeStart,
// up to and including rangeEnd. The anchor carries the time of day; candidate
// generation honors the pattern's interval, weekday set, and count/until end
// conditions, then the holiday policy is applied. The result is strictly
// increasing with no duplicates and never exceeds rangeEnd or Until, shifted
// occurrences included.
func (e *Expander) Expand(p models.RecurrencePattern, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	candidates, err := e.candidates(p, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	// non-holiday occurrences claim their instants up front so a shifted
	// occurrence advances past them instead of colliding
	taken := make(map[int64]bool, len(candidates))
	for _, t := range candidates {
		if !e.isHoliday(t) {
			taken[t.UnixNano()] = true
		}
	}

	out := make([]time.Time, 0, len(candidates))
	for _, t := range candidates {
		if !e.isHoliday(t) {
			out = append(out, t)
			continue
		}
		if e.policy != HolidayPolicyShift {
			continue
		}
		shifted := t
		for e.isHoliday(shifted) || taken[shifted.UnixNano()] {
			shifted = shifted.AddDate(0, 0, 1)
		}
		if shifted.After(rangeEnd) || (p.Until != nil && shifted.After(*p.Until)) {
			continue
		}
		taken[shifted.UnixNano()] = true
		out = append(out, shifted)
	}

	// shifting can reorder occurrences
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (e *Expander) candidates(p models.RecurrencePattern, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = 1
	}

	var out []time.Time
	done := func(t time.Time) bool {
		if t.After(rangeEnd) {
			return true
		}
		if p.Until != nil && t.After(*p.Until) {
			return true
		}
		return p.Count > 0 && len(out) >= p.Count
	}

	switch p.Frequency {
	case FreqDaily:
		for d := 0; ; d += interval {
			t := rangeStart.AddDate(0, 0, d)
			if done(t) {
				break
			}
			out = append(out, t)
		}
	case FreqWeekly:
		if len(p.Weekdays) == 0 {
			for d := 0; ; d += 7 * interval {
				t := rangeStart.AddDate(0, 0, d)
				if done(t) {
					break
				}
				out = append(out, t)
			}
			break
		}
		set := make(map[int]bool, len(p.Weekdays))
		for _, wd := range p.Weekdays {
			if wd < 0 || wd > 6 {
				return nil, fmt.Errorf("recurrence weekday out of range: %d", wd)
			}
			set[wd] = true
		}
		for d := 0; ; d++ {
			t := rangeStart.AddDate(0, 0, d)
			if t.After(rangeEnd) || (p.Until != nil && t.After(*p.Until)) {
				break
			}
			if p.Count > 0 && len(out) >= p.Count {
				break
			}
			if (d/7)%interval == 0 && set[mondayIndexed(t.Weekday())] {
				out = append(out, t)
			}
		}
	case FreqMonthly:
		for k := 0; ; k += interval {
			t := rangeStart.AddDate(0, k, 0)
			if done(t) {
				break
			}
			// AddDate normalizes Jan 31 + 1 month into March; such months
			// have no matching day and are skipped.
			if t.Day() == rangeStart.Day() {
				out = append(out, t)
			}
		}
	default:
		return nil, fmt.Errorf("unknown recurrence frequency %q", p.Frequency)
	}
	return out, nil
}

func (e *Expander) isHoliday(t time.Time) bool {
	if e.registry == nil {
		return false
	}
	return e.registry.IsHoliday(t, e.country, e.state)
}

// mondayIndexed converts time.Weekday (Sunday=0) to the pattern's
// Monday=0..Sunday=6 convention.
func mondayIndexed(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
