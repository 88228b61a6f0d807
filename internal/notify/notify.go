// Package notify delivers best-effort outbound notifications. Delivery is
// fire-and-forget: callers log failures and never surface them to the
// operation that triggered the notification.
package notify

import "context"

// TemplateKind selects the message template a sink renders.
type TemplateKind string

const (
	// TemplateRegistrationConfirmed is sent after a successful
	// self-service registration.
	TemplateRegistrationConfirmed TemplateKind = "registration_confirmed"
)

// Notifier is the outbound notification sink.
type Notifier interface {
	Notify(ctx context.Context, recipient string, kind TemplateKind, data map[string]any) error
}
