// Package notify is the outbound notification port. Emission is
// fire-and-forget: the sink never blocks a caller and never reports
// delivery failures upward.
package notify

import "go.uber.org/zap"

// Notifier delivers a short title/body message to the local user.
type Notifier interface {
	Send(title, body string)
}

// LogNotifier writes notifications to the structured log. It is the default
// sink; real desktop delivery is a frontend concern.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// NewLogNotifier returns a sink backed by the given logger.
func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification.
func (n *LogNotifier) Send(title, body string) {
	n.logger.Infow("Notification", "title", title, "body", body)
}

// Discard swallows all notifications.
type Discard struct{}

// Send does nothing.
func (Discard) Send(title, body string) {}
