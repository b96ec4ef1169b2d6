package domain

// Actor is the authenticated caller as established by the auth middleware.
type Actor struct {
	ID   string
	Role Role
}

// Operation names an action an actor can attempt against applications.
type Operation string

const (
	OpView        Operation = "view"
	OpCancel      Operation = "cancel"
	OpPatch       Operation = "patch"
	OpApprove     Operation = "approve"
	OpReject      Operation = "reject"
	OpStatusPatch Operation = "statusPatch"
	OpListAll     Operation = "listAll"
)

// CanAccess is the access policy for applications: admins may do anything,
// owners may view, cancel and patch their own applications, and everything
// else is denied. It is a pure predicate; callers decide how a denial
// surfaces (object-scoped operations report not-found so the response never
// confirms the application exists).
func CanAccess(actor Actor, app *Application, op Operation) bool {
	if actor.ID == "" {
		return false
	}
	if actor.Role == RoleAdmin {
		return true
	}

	switch op {
	case OpView, OpCancel, OpPatch:
		return app != nil && app.RequestedBy == actor.ID
	default:
		// approve, reject, statusPatch, listAll are admin-only
		return false
	}
}
