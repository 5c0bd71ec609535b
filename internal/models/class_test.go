package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClass_EndTime(t *testing.T) {
	c := Class{
		ScheduledAt: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		DurationMin: 90,
	}
	assert.Equal(t, time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC), c.EndTime())
}

func TestClass_Transitions(t *testing.T) {
	cases := []struct {
		from    ClassStatus
		to      ClassStatus
		allowed bool
	}{
		{ClassScheduled, ClassInProgress, true},
		{ClassScheduled, ClassCancelled, true},
		{ClassScheduled, ClassCompleted, false},
		{ClassInProgress, ClassCompleted, true},
		{ClassInProgress, ClassCancelled, true},
		{ClassInProgress, ClassScheduled, false},
		{ClassCompleted, ClassCancelled, false},
		{ClassCancelled, ClassScheduled, false},
	}
	for _, tc := range cases {
		c := Class{Status: tc.from}
		assert.Equal(t, tc.allowed, c.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestClass_ActiveAndTerminal(t *testing.T) {
	assert.True(t, (&Class{Status: ClassScheduled}).IsActive())
	assert.True(t, (&Class{Status: ClassInProgress}).IsActive())
	assert.False(t, (&Class{Status: ClassCompleted}).IsActive())
	assert.True(t, (&Class{Status: ClassCompleted}).IsTerminal())
	assert.True(t, (&Class{Status: ClassCancelled}).IsTerminal())
}

func TestBooking_Transitions(t *testing.T) {
	cases := []struct {
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCompleted, BookingCancelled, false},
	}
	for _, tc := range cases {
		b := Booking{Status: tc.from}
		assert.Equal(t, tc.allowed, b.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBooking_ActiveCountsAgainstCapacity(t *testing.T) {
	assert.True(t, (&Booking{Status: BookingPending}).IsActive())
	assert.True(t, (&Booking{Status: BookingConfirmed}).IsActive())
	assert.False(t, (&Booking{Status: BookingCancelled}).IsActive())
	assert.False(t, (&Booking{Status: BookingCompleted}).IsActive())
}
