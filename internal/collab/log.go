package collab

import (
	"context"

	"go.uber.org/zap"
)

// LogCollaborators is the default wiring for environments where the real
// collaborator services are not attached: every call is logged and succeeds.
type LogCollaborators struct {
	lg *zap.Logger
}

// NewLogCollaborators returns collaborators that log through lg.
func NewLogCollaborators(lg *zap.Logger) *LogCollaborators {
	return &LogCollaborators{lg: lg}
}

var (
	_ PermissionChecker = (*LogCollaborators)(nil)
	_ AuditLog          = (*LogCollaborators)(nil)
	_ Notifier          = (*LogCollaborators)(nil)
	_ EmailSender       = (*LogCollaborators)(nil)
)

// Can allows any permission the principal's resolved set carries.
func (l *LogCollaborators) Can(_ context.Context, p Principal, permission string) bool {
	return p.Has(permission)
}

func (l *LogCollaborators) Record(_ context.Context, principal, action, entity, entityID, details string) error {
	l.lg.Info("audit",
		zap.String("principal", principal),
		zap.String("action", action),
		zap.String("entity", entity),
		zap.String("entity_id", entityID),
		zap.String("details", details),
	)
	return nil
}

func (l *LogCollaborators) NotifyRole(_ context.Context, role string, note Note) error {
	l.lg.Info("notify role",
		zap.String("role", role),
		zap.String("title", note.Title),
		zap.String("message", note.Message),
	)
	return nil
}

func (l *LogCollaborators) SendOrderConfirmation(_ context.Context, userID, orderID string) error {
	l.lg.Info("order confirmation email",
		zap.String("user_id", userID),
		zap.String("order_id", orderID),
	)
	return nil
}
