package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"emabot/internal/config"
)

var trigger = config.TimeOfDay{Hour: 21, Minute: 20}

func clockAt(hour, minute int) time.Time {
	return time.Date(2026, 5, 11, hour, minute, 0, 0, time.UTC)
}

func TestWithinWindow(t *testing.T) {
	tol := 5 * time.Minute

	assert.True(t, withinWindow(clockAt(21, 20), trigger, tol), "exact trigger time")
	assert.True(t, withinWindow(clockAt(21, 19), trigger, tol), "one minute early")
	assert.True(t, withinWindow(clockAt(21, 25), trigger, tol), "edge of tolerance")
	assert.True(t, withinWindow(clockAt(21, 15), trigger, tol), "early edge")
	assert.False(t, withinWindow(clockAt(21, 26), trigger, tol), "past the window")
	assert.False(t, withinWindow(clockAt(21, 14), trigger, tol), "before the window")
	assert.False(t, withinWindow(clockAt(9, 20), trigger, tol), "wrong half of the day")
}

func TestNextOccurrenceSameDay(t *testing.T) {
	next := nextOccurrence(clockAt(9, 0), trigger)
	assert.Equal(t, clockAt(21, 20), next)
}

func TestNextOccurrenceRollsToTomorrow(t *testing.T) {
	next := nextOccurrence(clockAt(21, 26), trigger)
	assert.Equal(t, clockAt(21, 20).AddDate(0, 0, 1), next)

	// The trigger instant itself belongs to tomorrow too; firing is the
	// tolerance window's job.
	next = nextOccurrence(clockAt(21, 20), trigger)
	assert.Equal(t, clockAt(21, 20).AddDate(0, 0, 1), next)
}

func TestNextOccurrenceCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2026, 5, 31, 23, 0, 0, 0, time.UTC)
	next := nextOccurrence(now, trigger)
	assert.Equal(t, time.Date(2026, 6, 1, 21, 20, 0, 0, time.UTC), next)
}

func TestNextOccurrenceAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// 2026-03-08 02:00 EST -> 03:00 EDT. The wall-clock target must stay
	// at 21:20 local on both sides of the jump.
	now := time.Date(2026, 3, 7, 22, 0, 0, 0, loc)
	next := nextOccurrence(now, trigger)
	assert.Equal(t, 21, next.Hour())
	assert.Equal(t, 20, next.Minute())
	assert.Equal(t, 8, next.Day())
}

func TestWaitForCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, waitFor(ctx, time.Hour))

	assert.NoError(t, waitFor(context.Background(), time.Millisecond))
}
