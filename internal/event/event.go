// Package event decodes verified webhook bodies into a closed set of typed
// events. Parsing never runs before signature verification.
package event

import (
	"errors"
	"fmt"
)

// Kind is the provider's event type tag.
type Kind string

const (
	KindUserCreated                  Kind = "user.created"
	KindUserUpdated                  Kind = "user.updated"
	KindUserDeleted                  Kind = "user.deleted"
	KindCheckoutSessionCompleted     Kind = "checkout.session.completed"
	KindSubscriptionUpdated          Kind = "customer.subscription.updated"
	KindSubscriptionScheduleCanceled Kind = "subscription_schedule.canceled"
)

// ErrMalformed is returned when a body cannot be decoded into an event.
var ErrMalformed = errors.New("malformed event payload")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Event is implemented by every variant in this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// UserUpserted is a user.created or user.updated event.
type UserUpserted struct {
	Type       Kind
	ExternalID string
	FirstName  string
	LastName   string
	Email      string
	ImageURL   string
}

func (e UserUpserted) Kind() Kind { return e.Type }
func (UserUpserted) isEvent()     {}

// UserDeleted is a user.deleted event.
type UserDeleted struct {
	ExternalID string
}

func (UserDeleted) Kind() Kind { return KindUserDeleted }
func (UserDeleted) isEvent()   {}

// CheckoutCompleted is a checkout.session.completed event.
type CheckoutCompleted struct {
	CustomerID     string
	SubscriptionID string
	Plan           string

	// OwnerExternalID is the identity-provider user id the checkout was
	// started for, when the session carries one.
	OwnerExternalID string
}

func (CheckoutCompleted) Kind() Kind { return KindCheckoutSessionCompleted }
func (CheckoutCompleted) isEvent()   {}

// SubscriptionUpdated is a customer.subscription.updated event. Status is
// the provider's value, unmodified.
type SubscriptionUpdated struct {
	CustomerID      string
	SubscriptionID  string
	Status          string
	Plan            string
	OwnerExternalID string
}

func (SubscriptionUpdated) Kind() Kind { return KindSubscriptionUpdated }
func (SubscriptionUpdated) isEvent()   {}

// ScheduleCanceled is a subscription_schedule.canceled event.
type ScheduleCanceled struct {
	CustomerID string
}

func (ScheduleCanceled) Kind() Kind { return KindSubscriptionScheduleCanceled }
func (ScheduleCanceled) isEvent()   {}

// Unrecognized carries any event type outside the known set.
type Unrecognized struct {
	Type string
}

func (e Unrecognized) Kind() Kind { return Kind(e.Type) }
func (Unrecognized) isEvent()     {}

// ownerFromMetadata returns the first identity-provider user id found in
// provider metadata.
func ownerFromMetadata(md map[string]string) string {
	for _, key := range []string{"user_id", "clerk_user_id", "external_id"} {
		if v := md[key]; v != "" {
			return v
		}
	}
	return ""
}
