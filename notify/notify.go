// Package notify publishes order status changes to whoever has to act on them.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/canteen/models"
)

type Event struct {
	OrderID uuid.UUID          `json:"order_id"`
	UserID  uuid.UUID          `json:"user_id"`
	From    models.OrderStatus `json:"from"`
	To      models.OrderStatus `json:"to"`
	At      time.Time          `json:"at"`
	Message string             `json:"message,omitempty"`
	// Phone is set on READY events when the customer has one on file.
	Phone string `json:"phone,omitempty"`
}

// NewEvent builds the event for an order that moved from one status to another.
func NewEvent(order models.Order, from models.OrderStatus) Event {
	e := Event{
		OrderID: order.ID,
		UserID:  order.UserID,
		From:    from,
		To:      order.Status,
		At:      order.UpdatedAt,
	}
	if order.Status == models.StatusReady {
		e.Message = fmt.Sprintf("Your order %s is ready for pickup.", shortID(order.ID))
	}
	return e
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
	Close() error
}

// LogNotifier writes events to the log. Used when no broker is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.log.WithFields(logrus.Fields{
		"order_id": e.OrderID,
		"user_id":  e.UserID,
		"from":     e.From,
		"to":       e.To,
	}).Info(orDefault(e.Message, "order status changed"))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
