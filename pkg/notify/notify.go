// Package notify sends security-event notifications to principals. Delivery
// is best-effort: failures are logged and never surfaced to the client.
package notify

import "context"

// EventKind identifies a security-relevant account event.
type EventKind string

const (
	EventRegistered       EventKind = "registered"
	EventProviderLinked   EventKind = "provider_linked"
	EventProviderUnlinked EventKind = "provider_unlinked"
)

// Event describes the account change being announced.
type Event struct {
	Kind     EventKind
	Email    string
	Username string
	Provider string // set for link/unlink events
}

// Notifier delivers account events.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

func subject(e Event) string {
	switch e.Kind {
	case EventRegistered:
		return "Welcome to Veridian"
	case EventProviderLinked:
		return "A sign-in provider was linked to your account"
	case EventProviderUnlinked:
		return "A sign-in provider was removed from your account"
	default:
		return "Account update"
	}
}

func body(e Event) string {
	switch e.Kind {
	case EventRegistered:
		return "Hi " + e.Username + ", your account has been created."
	case EventProviderLinked:
		return "Hi " + e.Username + ", signing in with " + e.Provider + " is now enabled on your account. If this wasn't you, review your account immediately."
	case EventProviderUnlinked:
		return "Hi " + e.Username + ", signing in with " + e.Provider + " has been disabled on your account."
	default:
		return "Your account was updated."
	}
}
