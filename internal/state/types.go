// Package state persists the records projected from verified webhook events.
//
// Every read-modify-write runs inside Store.WithinTx so a lookup followed by
// an insert or patch is atomic per handler invocation. Unique indexes on
// users.external_id and subscriptions.stripe_customer_id turn a concurrent
// duplicate insert into ErrConflict instead of a second row.
package state

import (
	"context"
	"errors"
	"time"
)

// Subscription statuses set by this service. Any other provider-reported
// status string is stored verbatim.
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// User is keyed by the identity provider's ExternalID.
type User struct {
	ID         string
	ExternalID string
	Name       string
	Email      string // empty when absent
	ImageURL   string // empty when absent
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Subscription is keyed by StripeCustomerID and owned by one User.
type Subscription struct {
	ID                   string
	UserID               string
	StripeCustomerID     string
	StripeSubscriptionID string // empty until the provider assigns one
	Status               string
	Plan                 string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

//go:generate mockgen -destination=mocks/mock_state.go -package=mocks github.com/mattjoyce/gatehouse/internal/state Store,Tx

// Tx is the set of operations available inside a transaction.
type Tx interface {
	UserByExternalID(ctx context.Context, externalID string) (*User, error)
	InsertUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error

	SubscriptionByCustomerID(ctx context.Context, customerID string) (*Subscription, error)
	SubscriptionsByUserID(ctx context.Context, userID string) ([]Subscription, error)
	InsertSubscription(ctx context.Context, s *Subscription) error
	UpdateSubscription(ctx context.Context, s *Subscription) error

	// CustomerLink returns the external id correlated with a payment
	// provider customer, or ErrNotFound.
	CustomerLink(ctx context.Context, customerID string) (string, error)
	LinkCustomer(ctx context.Context, customerID, externalID string) error
}

// Store runs fn in a transaction, committing when fn returns nil.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
