// Package workflow holds the order status state machine. Every status change
// in the service goes through Apply or Cancel.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/ray-remotestate/canteen/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type Action struct {
	Label  string             `json:"label"`
	Target models.OrderStatus `json:"target_status"`
}

var transitions = map[models.OrderStatus][]Action{
	models.StatusPending: {
		{Label: "Confirm", Target: models.StatusConfirmed},
		{Label: "Cancel", Target: models.StatusCancelled},
	},
	models.StatusConfirmed: {
		{Label: "Start Preparing", Target: models.StatusPreparing},
	},
	models.StatusPreparing: {
		{Label: "Mark Ready", Target: models.StatusReady},
	},
	models.StatusReady: {
		{Label: "Complete", Target: models.StatusCompleted},
	},
}

// NextActions returns the transitions offered from status, in display order.
// Terminal and unknown statuses yield an empty slice.
func NextActions(status models.OrderStatus) []Action {
	actions := transitions[status]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, a := range transitions[from] {
		if a.Target == to {
			return true
		}
	}
	return false
}

func IsTerminal(status models.OrderStatus) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}

// Apply moves order to target, stamping UpdatedAt with now.
func Apply(order *models.Order, target models.OrderStatus, now time.Time) error {
	if !CanTransition(order.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}
	order.Status = target
	order.UpdatedAt = now
	return nil
}

// CanCancel reports whether the order owner may still cancel.
func CanCancel(status models.OrderStatus) bool {
	return status == models.StatusPending
}

// Cancel is the owner-initiated path: only a pending order can be cancelled.
func Cancel(order *models.Order, now time.Time) error {
	if !CanCancel(order.Status) {
		return fmt.Errorf("%w: order is %s, only %s orders can be cancelled",
			ErrInvalidTransition, order.Status, models.StatusPending)
	}
	return Apply(order, models.StatusCancelled, now)
}
