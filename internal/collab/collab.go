// Package collab declares the external collaborator interfaces the core
// consumes. Permission storage, audit persistence, notification delivery, and
// email sending live in other systems; the core only calls them. All calls
// except permission checks are fire-and-forget: failures are logged by the
// caller and never escalate into the caller-visible error path.
package collab

import "context"

// Principal is an already-authenticated caller with a resolved permission
// set. Token mechanics are out of scope; transports construct a Principal
// from whatever their auth layer provides.
type Principal struct {
	ID          string
	Role        string
	Permissions []string
}

// Has reports whether the principal's resolved set contains the permission.
func (p Principal) Has(permission string) bool {
	for _, x := range p.Permissions {
		if x == permission {
			return true
		}
	}
	return false
}

// PermissionChecker gates mutating operations.
type PermissionChecker interface {
	Can(ctx context.Context, p Principal, permission string) bool
}

// AuditLog records successful mutations.
type AuditLog interface {
	Record(ctx context.Context, principal, action, entity, entityID, details string) error
}

// Note is a notification payload for role fan-out.
type Note struct {
	Title   string
	Message string
	Link    string
}

// Notifier fans a notification out to every user holding a role.
type Notifier interface {
	NotifyRole(ctx context.Context, role string, note Note) error
}

// EmailSender delivers transactional email.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, userID, orderID string) error
}
