package notification

import (
	"context"
	"log/slog"
)

const (
	// KindBookingSettled signals a booking that obtained a waybill (real or fallback).
	KindBookingSettled = "booking_settled"
	// KindBookingCompensated signals a booking that was refunded after carrier failure.
	KindBookingCompensated = "booking_compensated"
	// KindCompensationStuck signals a refund that itself failed and needs an operator.
	KindCompensationStuck = "compensation_stuck"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems (email/SMS/push are
// external collaborators; this boundary is all the core knows about them).
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
