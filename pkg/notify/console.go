package notify

import (
	"context"

	"github.com/veridian-labs/veridian/pkg/logx"
)

// ConsoleNotifier writes events to the log. Default for development.
type ConsoleNotifier struct{}

// NewConsoleNotifier creates a log-backed notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Send logs the event instead of delivering it.
func (n *ConsoleNotifier) Send(_ context.Context, event Event) error {
	logx.WithFields(logx.Fields{
		"kind":     string(event.Kind),
		"email":    event.Email,
		"provider": event.Provider,
	}).Infof("notify: %s", subject(event))
	return nil
}
