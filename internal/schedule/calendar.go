package schedule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidInterval = errors.New("interval end must be after start")

// OwnerKey identifies the calendar an interval belongs to. Different owners
// never contend with each other.
type OwnerKey string

func CoachKey(id uuid.UUID) OwnerKey  { return OwnerKey("coach:" + id.String()) }
func CenterKey(id uuid.UUID) OwnerKey { return OwnerKey("center:" + id.String()) }
func GroupKey(id uuid.UUID) OwnerKey  { return OwnerKey("group:" + id.String()) }

// Interval is an occupied half-open time range [Start, End) tagged by class.
type Interval struct {
	ClassID uuid.UUID
	Start   time.Time
	End     time.Time
}

// ConflictError reports an overlap with an existing active interval.
type ConflictError struct {
	Owner         OwnerKey
	ClassID       uuid.UUID
	ConflictingID uuid.UUID
	Start         time.Time
	End           time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict for %s: [%s, %s) overlaps class %s",
		e.Owner, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.ConflictingID)
}

// Calendar holds, per owner, the set of intervals occupied by active classes.
// Each owner has its own lock, so operations on different coaches, centers,
// or groups proceed in parallel, while check-then-insert for one owner is
// atomic.
type Calendar struct {
	mu     sync.RWMutex
	owners map[OwnerKey]*ownerIndex
}

// ownerIndex keeps intervals sorted by start. Intervals never overlap, so
// end times are sorted as well, which keeps conflict checks logarithmic.
type ownerIndex struct {
	mu        sync.Mutex
	intervals []Interval
}

func NewCalendar() *Calendar {
	return &Calendar{owners: make(map[OwnerKey]*ownerIndex)}
}

func (c *Calendar) owner(key OwnerKey) *ownerIndex {
	c.mu.RLock()
	oi, ok := c.owners[key]
	c.mu.RUnlock()
	if ok {
		return oi
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if oi, ok = c.owners[key]; !ok {
		oi = &ownerIndex{}
		c.owners[key] = oi
	}
	return oi
}

// CheckConflict returns the class occupying the first active interval that
// overlaps [start, end), if any.
func (c *Calendar) CheckConflict(owner OwnerKey, start, end time.Time) (uuid.UUID, bool) {
	oi := c.owner(owner)
	oi.mu.Lock()
	defer oi.mu.Unlock()
	return oi.conflict(start, end)
}

// Insert adds [start, end) for classID, failing with *ConflictError when the
// range overlaps an existing interval of the same owner.
func (c *Calendar) Insert(owner OwnerKey, classID uuid.UUID, start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	oi := c.owner(owner)
	oi.mu.Lock()
	defer oi.mu.Unlock()

	if conflictID, ok := oi.conflict(start, end); ok {
		return &ConflictError{Owner: owner, ClassID: classID, ConflictingID: conflictID, Start: start, End: end}
	}

	pos := sort.Search(len(oi.intervals), func(i int) bool {
		return oi.intervals[i].Start.After(start)
	})
	oi.intervals = append(oi.intervals, Interval{})
	copy(oi.intervals[pos+1:], oi.intervals[pos:])
	oi.intervals[pos] = Interval{ClassID: classID, Start: start, End: end}
	return nil
}

// Remove deletes every interval tagged with classID for the owner. Called
// when a class leaves the active statuses.
func (c *Calendar) Remove(owner OwnerKey, classID uuid.UUID) {
	oi := c.owner(owner)
	oi.mu.Lock()
	defer oi.mu.Unlock()

	kept := oi.intervals[:0]
	for _, iv := range oi.intervals {
		if iv.ClassID != classID {
			kept = append(kept, iv)
		}
	}
	oi.intervals = kept
}

// Rebuild replaces the whole index, typically from persisted active classes
// at startup. Overlaps among the given entries surface as *ConflictError so
// stored inconsistencies are not silently absorbed.
func (c *Calendar) Rebuild(entries map[OwnerKey][]Interval) error {
	c.mu.Lock()
	c.owners = make(map[OwnerKey]*ownerIndex, len(entries))
	c.mu.Unlock()

	for owner, ivs := range entries {
		for _, iv := range ivs {
			if err := c.Insert(owner, iv.ClassID, iv.Start, iv.End); err != nil {
				return err
			}
		}
	}
	return nil
}

// conflict uses half-open semantics: a.start < b.end && b.start < a.end.
func (oi *ownerIndex) conflict(start, end time.Time) (uuid.UUID, bool) {
	i := sort.Search(len(oi.intervals), func(i int) bool {
		return oi.intervals[i].End.After(start)
	})
	if i < len(oi.intervals) && oi.intervals[i].Start.Before(end) {
		return oi.intervals[i].ClassID, true
	}
	return uuid.Nil, false
}
