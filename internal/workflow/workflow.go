package workflow

import (
	"book-production-tracker/internal/models"
)

// The rule table maps who is acting to the statuses they may set. It is the
// single source of truth for both the API server and the dashboard client,
// so UI gating and server-side validation can never disagree.
//
// Admins and leads own intake and scheduling states; the developer-driven
// work states can only be entered by the assigned developer. Everyone else
// is read-only.
var (
	leadTargets = map[models.RecordStatus]struct{}{
		models.StatusBacklog:   {},
		models.StatusTodo:      {},
		models.StatusOnHold:    {},
		models.StatusPublished: {},
	}

	assigneeTargets = map[models.RecordStatus]struct{}{
		models.StatusInProgress:   {},
		models.StatusInReview:     {},
		models.StatusReviewFailed: {},
		models.StatusOnHold:       {},
		models.StatusPublished:    {},
	}
)

// targets returns the raw rule-table row for an acting user. Membership is
// checked strictly against the role enum.
func targets(role models.Role, isAssignee bool) map[models.RecordStatus]struct{} {
	switch role {
	case models.RoleAdmin, models.RoleLead:
		return leadTargets
	case models.RoleDeveloper:
		if isAssignee {
			return assigneeTargets
		}
	}
	return nil
}

// CanEdit reports whether the user may edit or delete records and create
// new ones. Only admins and leads manage record fields.
func CanEdit(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleLead
}

// CanTransition reports whether the acting user may move a record from the
// current status to the target. Setting the current status again is always
// allowed as an idempotent no-op, provided the user may transition at all.
func CanTransition(role models.Role, isAssignee bool, current, target models.RecordStatus) bool {
	t := targets(role, isAssignee)
	if t == nil {
		return false
	}
	if target == current {
		return true
	}
	_, ok := t[target]
	return ok
}

// AllowedTargets returns every status the acting user may set, in display
// order. The current status is always included so the UI can render it as
// selected. A nil result means the user is read-only and no editable
// control should be offered.
func AllowedTargets(role models.Role, isAssignee bool, current models.RecordStatus) []models.RecordStatus {
	t := targets(role, isAssignee)
	if t == nil {
		return nil
	}
	out := make([]models.RecordStatus, 0, len(t)+1)
	for _, s := range models.AllStatuses {
		if _, ok := t[s]; ok || s == current {
			out = append(out, s)
		}
	}
	return out
}
