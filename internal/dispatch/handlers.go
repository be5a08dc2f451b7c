package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattjoyce/gatehouse/internal/event"
	"github.com/mattjoyce/gatehouse/internal/state"
)

// ErrNoOwner means a subscription event arrived for a customer that cannot
// be tied to any known user.
var ErrNoOwner = errors.New("no owner for payment customer")

const unknownName = "Unknown"

func unexpected(ev event.Event) error {
	return fmt.Errorf("unexpected event type %T", ev)
}

// displayName joins the non-empty name parts with a single space.
func displayName(first, last string) string {
	var parts []string
	for _, p := range []string{first, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return unknownName
	}
	return strings.Join(parts, " ")
}

func upsertUser(ctx context.Context, tx state.Tx, ev event.Event) (Outcome, error) {
	e, ok := ev.(event.UserUpserted)
	if !ok {
		return "", unexpected(ev)
	}

	name := displayName(e.FirstName, e.LastName)
	existing, err := tx.UserByExternalID(ctx, e.ExternalID)
	switch {
	case err == nil:
		existing.Name = name
		existing.Email = e.Email
		existing.ImageURL = e.ImageURL
		if err := tx.UpdateUser(ctx, existing); err != nil {
			return "", err
		}
		return OutcomeUpdated, nil
	case errors.Is(err, state.ErrNotFound):
		u := &state.User{
			ExternalID: e.ExternalID,
			Name:       name,
			Email:      e.Email,
			ImageURL:   e.ImageURL,
		}
		if err := tx.InsertUser(ctx, u); err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	default:
		return "", err
	}
}

func deleteUser(ctx context.Context, tx state.Tx, ev event.Event) (Outcome, error) {
	e, ok := ev.(event.UserDeleted)
	if !ok {
		return "", unexpected(ev)
	}

	existing, err := tx.UserByExternalID(ctx, e.ExternalID)
	if errors.Is(err, state.ErrNotFound) {
		return OutcomeNoop, nil
	}
	if err != nil {
		return "", err
	}
	if err := tx.DeleteUser(ctx, existing.ID); err != nil {
		return "", err
	}
	return OutcomeDeleted, nil
}

// subscriptionChange is the common shape of the two events that create or
// patch a subscription.
type subscriptionChange struct {
	customerID     string
	subscriptionID string
	status         string
	plan           string
	owner          string
}

func changeFrom(ev event.Event) (subscriptionChange, bool) {
	switch e := ev.(type) {
	case event.CheckoutCompleted:
		return subscriptionChange{
			customerID:     e.CustomerID,
			subscriptionID: e.SubscriptionID,
			status:         state.StatusActive,
			plan:           e.Plan,
			owner:          e.OwnerExternalID,
		}, true
	case event.SubscriptionUpdated:
		return subscriptionChange{
			customerID:     e.CustomerID,
			subscriptionID: e.SubscriptionID,
			status:         e.Status,
			plan:           e.Plan,
			owner:          e.OwnerExternalID,
		}, true
	}
	return subscriptionChange{}, false
}

func upsertSubscription(ctx context.Context, tx state.Tx, ev event.Event) (Outcome, error) {
	c, ok := changeFrom(ev)
	if !ok {
		return "", unexpected(ev)
	}

	existing, err := tx.SubscriptionByCustomerID(ctx, c.customerID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return "", err
	}

	if existing != nil {
		existing.Status = c.status
		if c.subscriptionID != "" {
			existing.StripeSubscriptionID = c.subscriptionID
		}
		if c.plan != "" {
			existing.Plan = c.plan
		}
		// The patch never fails for want of an owner; it only moves the
		// row when one resolves to a different user.
		owner, err := resolveOwner(ctx, tx, c)
		switch {
		case err == nil:
			existing.UserID = owner.ID
		case !errors.Is(err, ErrNoOwner):
			return "", err
		}
		if err := tx.UpdateSubscription(ctx, existing); err != nil {
			return "", err
		}
		return OutcomeUpdated, nil
	}

	owner, err := resolveOwner(ctx, tx, c)
	if err != nil {
		return "", err
	}
	sub := &state.Subscription{
		UserID:               owner.ID,
		StripeCustomerID:     c.customerID,
		StripeSubscriptionID: c.subscriptionID,
		Status:               c.status,
		Plan:                 c.plan,
	}
	if err := tx.InsertSubscription(ctx, sub); err != nil {
		return "", err
	}
	return OutcomeCreated, nil
}

// resolveOwner finds the user owning c.customerID: the owner named on the
// event first, then the recorded customer link. An event owner that resolves
// is stored as the customer's link.
func resolveOwner(ctx context.Context, tx state.Tx, c subscriptionChange) (*state.User, error) {
	if c.owner != "" {
		u, err := tx.UserByExternalID(ctx, c.owner)
		if err == nil {
			if err := tx.LinkCustomer(ctx, c.customerID, c.owner); err != nil {
				return nil, err
			}
			return u, nil
		}
		if !errors.Is(err, state.ErrNotFound) {
			return nil, err
		}
	}

	linked, err := tx.CustomerLink(ctx, c.customerID)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: customer %s", ErrNoOwner, c.customerID)
	}
	if err != nil {
		return nil, err
	}
	if linked == c.owner {
		return nil, fmt.Errorf("%w: user %s not found", ErrNoOwner, linked)
	}

	u, err := tx.UserByExternalID(ctx, linked)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s not found", ErrNoOwner, linked)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func cancelSubscription(ctx context.Context, tx state.Tx, ev event.Event) (Outcome, error) {
	e, ok := ev.(event.ScheduleCanceled)
	if !ok {
		return "", unexpected(ev)
	}

	existing, err := tx.SubscriptionByCustomerID(ctx, e.CustomerID)
	if errors.Is(err, state.ErrNotFound) {
		return OutcomeNoop, nil
	}
	if err != nil {
		return "", err
	}
	existing.Status = state.StatusCanceled
	if err := tx.UpdateSubscription(ctx, existing); err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}
