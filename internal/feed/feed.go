// Package feed publishes mutation events so near-real-time consumers (alert
// dashboards, order views) can follow ledger changes without polling.
package feed

import (
	"context"
	"time"
)

const (
	EventStockChanged    = "inventory.stock_changed"
	EventAlertRaised     = "inventory.alert_raised"
	EventAlertResolved   = "inventory.alert_resolved"
	EventOrderCreated    = "order.created"
	EventOrderUpdated    = "order.updated"
	EventOrderCancelled  = "order.cancelled"
	EventLoyaltyRecorded = "loyalty.recorded"
	EventShiftOpened     = "shift.opened"
	EventShiftClosed     = "shift.closed"
)

// Event carries the mutated record to subscribers. Payload must be
// JSON-marshalable.
type Event struct {
	Kind     string    `json:"kind"`
	EntityID string    `json:"entity_id"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
