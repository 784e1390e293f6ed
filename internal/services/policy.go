package services

import "github.com/stadtmeldung/report-server/internal/models"

// Action is a mutating operation subject to a permission check.
type Action string

const (
	ActionAdvance Action = "advance"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionExport  Action = "export"
)

// CanPerform is the single policy gate consulted by every mutating
// operation. report may be nil for actions that do not target one.
//
// Rules: advancing is open to staff and to the report's own non-anonymous
// reporter; approve/reject require staff; export requires admin; delete is
// unguarded (the frontend gates it behind a confirmation dialog).
func CanPerform(action Action, actor *models.User, report *models.Report) bool {
	switch action {
	case ActionAdvance:
		if actor == nil {
			return false
		}
		if actor.IsStaff() {
			return true
		}
		return report != nil && report.OwnedBy(actor.ID)
	case ActionApprove, ActionReject:
		return actor.IsStaff()
	case ActionExport:
		return actor != nil && actor.IsAdmin
	case ActionDelete:
		return true
	}
	return false
}
