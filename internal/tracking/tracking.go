package tracking

import (
	"errors"
	"math"
	"time"

	"book-production-tracker/internal/models"
)

// ErrMissingEntryTime is returned when a record's live status has no usable
// entry timestamp, so its elapsed time cannot be computed. The failure is
// scoped to that record; other records are unaffected.
var ErrMissingEntryTime = errors.New("tracking: record has no valid status entry timestamp")

// Expected ceilings in hours used for progress percentages. Cosmetic only;
// accumulators are never capped.
const (
	todoCeilingHours = 24.0
	workCeilingHours = 48.0
)

// Tracked reports whether time is accumulated while a record sits in the
// given status. Backlog, On-Hold and Published accumulate nothing.
func Tracked(s models.RecordStatus) bool {
	switch s {
	case models.StatusTodo, models.StatusInProgress, models.StatusInReview, models.StatusReviewFailed:
		return true
	default:
		return false
	}
}

// Snapshot is the live-adjusted view of a record's four time accumulators,
// in hours. The accumulator matching Live includes time elapsed since the
// record entered its current status; the other three are frozen.
type Snapshot struct {
	Todo         float64
	InProgress   float64
	InReview     float64
	ReviewFailed float64

	// Live is the status whose accumulator is currently running, or the
	// empty string when no accumulator is live.
	Live models.RecordStatus
}

// Hours returns the snapshot value for one tracked status.
func (s Snapshot) Hours(status models.RecordStatus) float64 {
	switch status {
	case models.StatusTodo:
		return s.Todo
	case models.StatusInProgress:
		return s.InProgress
	case models.StatusInReview:
		return s.InReview
	case models.StatusReviewFailed:
		return s.ReviewFailed
	default:
		return 0
	}
}

// TakeSnapshot computes the current elapsed time per tracked status.
// Only the accumulator for the record's current status is recomputed as
// stored + (now - entry); the rest keep their frozen values.
func TakeSnapshot(rec *models.Record, now time.Time) (Snapshot, error) {
	snap := Snapshot{
		Todo:         rec.TimeTodo,
		InProgress:   rec.TimeInProgress,
		InReview:     rec.TimeInReview,
		ReviewFailed: rec.TimeReviewFailed,
	}

	if !Tracked(rec.Status) {
		return snap, nil
	}
	snap.Live = rec.Status

	if rec.StatusChangedAt.IsZero() || rec.StatusChangedAt.After(now) {
		return snap, ErrMissingEntryTime
	}
	elapsed := now.Sub(rec.StatusChangedAt).Hours()

	switch rec.Status {
	case models.StatusTodo:
		snap.Todo += elapsed
	case models.StatusInProgress:
		snap.InProgress += elapsed
	case models.StatusInReview:
		snap.InReview += elapsed
	case models.StatusReviewFailed:
		snap.ReviewFailed += elapsed
	}
	return snap, nil
}

// ApplyTransition moves a record to the target status, freezing the
// accumulator it leaves and restarting the entry clock. Re-entering a
// previously visited status resumes from its frozen value.
//
// Transitioning to the current status is a safe no-op: the running
// accumulator is neither reset nor double-counted.
func ApplyTransition(rec *models.Record, target models.RecordStatus, now time.Time) {
	if target == rec.Status {
		return
	}

	if Tracked(rec.Status) {
		// Freeze the leaving accumulator. A missing or future entry
		// timestamp contributes nothing rather than corrupting the total.
		elapsed := 0.0
		if !rec.StatusChangedAt.IsZero() && !rec.StatusChangedAt.After(now) {
			elapsed = now.Sub(rec.StatusChangedAt).Hours()
		}
		switch rec.Status {
		case models.StatusTodo:
			rec.TimeTodo += elapsed
		case models.StatusInProgress:
			rec.TimeInProgress += elapsed
		case models.StatusInReview:
			rec.TimeInReview += elapsed
		case models.StatusReviewFailed:
			rec.TimeReviewFailed += elapsed
		}
	}

	rec.Status = target
	rec.StatusChangedAt = now

	// published_date is set the first time a record reaches Published and
	// never cleared, even if the record later leaves Published.
	if target == models.StatusPublished && rec.PublishedDate == nil {
		t := now
		rec.PublishedDate = &t
	}
}

// SplitHours decomposes fractional hours into whole hours plus rounded
// minutes, carrying 60 rounded minutes into the hour part.
func SplitHours(hours float64) (int, int) {
	if hours <= 0 {
		return 0, 0
	}
	h := int(math.Floor(hours))
	m := int(math.Round((hours - math.Floor(hours)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	return h, m
}

// ProgressPercent maps elapsed hours in a status to a 0-100 display
// percentage against that status's expected ceiling. Statuses without a
// ceiling report 0.
func ProgressPercent(status models.RecordStatus, hours float64) float64 {
	var ceiling float64
	switch status {
	case models.StatusTodo:
		ceiling = todoCeilingHours
	case models.StatusInProgress, models.StatusInReview, models.StatusReviewFailed:
		ceiling = workCeilingHours
	default:
		return 0
	}
	if hours <= 0 {
		return 0
	}
	return math.Min(hours/ceiling*100, 100)
}
