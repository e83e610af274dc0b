package filelist

import (
	"context"

	"go.uber.org/zap"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Confirmer approves destructive operations. Delete is never sent to the
// provider without an affirmative answer.
type Confirmer interface {
	Confirm(ctx context.Context, obj provider.ObjectDescriptor) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, obj provider.ObjectDescriptor) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, obj provider.ObjectDescriptor) (bool, error) {
	return f(ctx, obj)
}

// DenyAll declines every confirmation.
var DenyAll Confirmer = ConfirmFunc(func(context.Context, provider.ObjectDescriptor) (bool, error) {
	return false, nil
})

// AllowAll approves every confirmation. Use it only where the caller has
// already obtained consent, such as a --yes flag.
var AllowAll Confirmer = ConfirmFunc(func(context.Context, provider.ObjectDescriptor) (bool, error) {
	return true, nil
})

// NotificationKind distinguishes success and failure notifications.
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyFailure
)

func (k NotificationKind) String() string {
	if k == NotifySuccess {
		return "success"
	}
	return "failure"
}

// Operation names used in notifications.
const (
	OpConfigure = "configure"
	OpList      = "list"
	OpDelete    = "delete"
)

// Notification is a user-facing outcome of a manager operation.
type Notification struct {
	Kind    NotificationKind
	Op      string
	Key     string
	Message string
	Err     error
}

// Notifier receives notifications. Notify is called synchronously and must
// not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(n Notification)

func (f NotifyFunc) Notify(n Notification) { f(n) }

type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Notify(n Notification) {
	fields := []zap.Field{zap.String("op", n.Op)}
	if n.Key != "" {
		fields = append(fields, zap.String("key", n.Key))
	}
	if n.Kind == NotifyFailure {
		l.logger.Warn(n.Message, append(fields, zap.Error(n.Err))...)
		return
	}
	l.logger.Info(n.Message, fields...)
}

const (
	msgListFailed      = "failed to fetch file list, check the storage configuration"
	msgConfigFailed    = "storage configuration is invalid"
	msgDeleteSucceeded = "deleted"
	msgDeleteFailed    = "delete failed"
)
