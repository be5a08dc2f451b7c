package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/gatehouse/internal/event"
	"github.com/mattjoyce/gatehouse/internal/log"
	"github.com/mattjoyce/gatehouse/internal/state"
)

// Outcome describes what a handler did to the store.
type Outcome string

const (
	OutcomeIgnored Outcome = "ignored"
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeDeleted Outcome = "deleted"
	OutcomeNoop    Outcome = "noop"
)

// Handler projects one event using the caller's transaction.
type Handler func(ctx context.Context, tx state.Tx, ev event.Event) (Outcome, error)

// Dispatcher maps event kinds to handlers and runs each in a transaction.
type Dispatcher struct {
	store    state.Store
	handlers map[event.Kind]Handler
	logger   *slog.Logger
}

// New creates a Dispatcher with the default routing table.
func New(store state.Store) *Dispatcher {
	return &Dispatcher{
		store: store,
		handlers: map[event.Kind]Handler{
			event.KindUserCreated:                  upsertUser,
			event.KindUserUpdated:                  upsertUser,
			event.KindUserDeleted:                  deleteUser,
			event.KindCheckoutSessionCompleted:     upsertSubscription,
			event.KindSubscriptionUpdated:          upsertSubscription,
			event.KindSubscriptionScheduleCanceled: cancelSubscription,
		},
		logger: log.WithComponent("dispatch"),
	}
}

// Dispatch runs the handler registered for ev's kind. Unregistered kinds
// return OutcomeIgnored without touching the store.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Event) (Outcome, error) {
	kind := ev.Kind()
	h, ok := d.handlers[kind]
	if !ok {
		d.logger.Debug("ignoring event", "kind", string(kind))
		return OutcomeIgnored, nil
	}

	var outcome Outcome
	err := d.store.WithinTx(ctx, func(tx state.Tx) error {
		var err error
		outcome, err = h(ctx, tx, ev)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("project %s: %w", kind, err)
	}

	d.logger.Debug("event projected", "kind", string(kind), "outcome", string(outcome))
	return outcome, nil
}

// LinkCustomer records that a payment customer belongs to a user so later
// subscription events for the customer can resolve their owner.
func (d *Dispatcher) LinkCustomer(ctx context.Context, customerID, externalID string) error {
	if customerID == "" || externalID == "" {
		return fmt.Errorf("customer id and external id are required")
	}
	return d.store.WithinTx(ctx, func(tx state.Tx) error {
		return tx.LinkCustomer(ctx, customerID, externalID)
	})
}
