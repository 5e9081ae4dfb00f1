package scheduler

import (
	"context"
	"time"

	"emabot/internal/config"
)

// instantOn pins a time of day onto the calendar day of ref, in ref's
// location. time.Date normalizes the result, so day boundaries and DST
// transitions are handled by full date-time arithmetic rather than
// wall-clock subtraction.
func instantOn(ref time.Time, tod config.TimeOfDay) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), tod.Hour, tod.Minute, 0, 0, ref.Location())
}

// nextOccurrence returns the next instant the time of day comes around:
// today if it is still ahead, otherwise tomorrow.
func nextOccurrence(now time.Time, tod config.TimeOfDay) time.Time {
	target := instantOn(now, tod)
	if !target.After(now) {
		target = instantOn(now.AddDate(0, 0, 1), tod)
	}
	return target
}

// withinWindow reports whether now falls inside +-tolerance of today's
// occurrence of the time of day.
func withinWindow(now time.Time, tod config.TimeOfDay, tolerance time.Duration) bool {
	diff := now.Sub(instantOn(now, tod))
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// waitFor sleeps for d or until the context is cancelled.
func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
