package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/gatehouse/internal/event"
	"github.com/mattjoyce/gatehouse/internal/log"
	"github.com/mattjoyce/gatehouse/internal/state"
	"github.com/mattjoyce/gatehouse/internal/storage"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR", "json") // Suppress logs in tests
	os.Exit(m.Run())
}

func setupTestDispatcher(t *testing.T) (*Dispatcher, state.Store) {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "gatehouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := state.NewSQLiteStore(db)
	return New(store), store
}

func mustDispatch(t *testing.T, d *Dispatcher, ev event.Event) Outcome {
	t.Helper()
	out, err := d.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return out
}

func lookupUser(t *testing.T, store state.Store, externalID string) *state.User {
	t.Helper()
	var u *state.User
	err := store.WithinTx(context.Background(), func(tx state.Tx) error {
		var err error
		u, err = tx.UserByExternalID(context.Background(), externalID)
		return err
	})
	if err != nil {
		require.ErrorIs(t, err, state.ErrNotFound)
		return nil
	}
	return u
}

func lookupSubscription(t *testing.T, store state.Store, customerID string) *state.Subscription {
	t.Helper()
	var s *state.Subscription
	err := store.WithinTx(context.Background(), func(tx state.Tx) error {
		var err error
		s, err = tx.SubscriptionByCustomerID(context.Background(), customerID)
		return err
	})
	if err != nil {
		require.ErrorIs(t, err, state.ErrNotFound)
		return nil
	}
	return s
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", "Unknown"},
		{"  ", "\t", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayName(tt.first, tt.last), "first=%q last=%q", tt.first, tt.last)
	}
}

func TestUserCreatedTwiceYieldsOneRowWithLatestValues(t *testing.T) {
	d, store := setupTestDispatcher(t)

	first := event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1", FirstName: "Ada", Email: "ada@old.example"}
	second := event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1", FirstName: "Ada", LastName: "Lovelace", ImageURL: "https://img.example/ada.png"}

	assert.Equal(t, OutcomeCreated, mustDispatch(t, d, first))
	assert.Equal(t, OutcomeUpdated, mustDispatch(t, d, second))

	u := lookupUser(t, store, "usr_1")
	require.NotNil(t, u)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Empty(t, u.Email)
	assert.Equal(t, "https://img.example/ada.png", u.ImageURL)
}

func TestUserUpdatedForUnseenUserInserts(t *testing.T) {
	d, store := setupTestDispatcher(t)

	ev := event.UserUpserted{Type: event.KindUserUpdated, ExternalID: "usr_2"}
	assert.Equal(t, OutcomeCreated, mustDispatch(t, d, ev))

	u := lookupUser(t, store, "usr_2")
	require.NotNil(t, u)
	assert.Equal(t, "Unknown", u.Name)
}

func TestUserDeleted(t *testing.T) {
	d, store := setupTestDispatcher(t)

	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1", FirstName: "Ada"})
	assert.Equal(t, OutcomeDeleted, mustDispatch(t, d, event.UserDeleted{ExternalID: "usr_1"}))
	assert.Nil(t, lookupUser(t, store, "usr_1"))

	// Replays and unknown ids are no-ops.
	assert.Equal(t, OutcomeNoop, mustDispatch(t, d, event.UserDeleted{ExternalID: "usr_1"}))
	assert.Equal(t, OutcomeNoop, mustDispatch(t, d, event.UserDeleted{ExternalID: "usr_never"}))
}

func TestCheckoutCompletedTwiceYieldsOneActiveRow(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1", FirstName: "Ada"})

	ev := event.CheckoutCompleted{CustomerID: "cus_1", SubscriptionID: "sub_1", Plan: "pro", OwnerExternalID: "usr_1"}
	assert.Equal(t, OutcomeCreated, mustDispatch(t, d, ev))
	assert.Equal(t, OutcomeUpdated, mustDispatch(t, d, ev))

	sub := lookupSubscription(t, store, "cus_1")
	require.NotNil(t, sub)
	assert.Equal(t, state.StatusActive, sub.Status)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
	assert.Equal(t, "pro", sub.Plan)
	assert.Equal(t, lookupUser(t, store, "usr_1").ID, sub.UserID)

	err := store.WithinTx(context.Background(), func(tx state.Tx) error {
		subs, err := tx.SubscriptionsByUserID(context.Background(), sub.UserID)
		assert.Len(t, subs, 1)
		return err
	})
	require.NoError(t, err)
}

func TestCheckoutRecordsCustomerLinkForLaterEvents(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	mustDispatch(t, d, event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_1"})

	err := store.WithinTx(context.Background(), func(tx state.Tx) error {
		ext, err := tx.CustomerLink(context.Background(), "cus_1")
		assert.Equal(t, "usr_1", ext)
		return err
	})
	require.NoError(t, err)
}

func TestSubscriptionUpdatedPatchesExistingRow(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	mustDispatch(t, d, event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_1"})

	out := mustDispatch(t, d, event.SubscriptionUpdated{CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "past_due"})
	assert.Equal(t, OutcomeUpdated, out)

	sub := lookupSubscription(t, store, "cus_1")
	require.NotNil(t, sub)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
}

func TestSubscriptionUpdatedCreatesViaCustomerLink(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	require.NoError(t, d.LinkCustomer(context.Background(), "cus_9", "usr_1"))

	out := mustDispatch(t, d, event.SubscriptionUpdated{CustomerID: "cus_9", SubscriptionID: "sub_9", Status: "trialing"})
	assert.Equal(t, OutcomeCreated, out)

	sub := lookupSubscription(t, store, "cus_9")
	require.NotNil(t, sub)
	assert.Equal(t, "trialing", sub.Status)
	assert.Equal(t, lookupUser(t, store, "usr_1").ID, sub.UserID)
}

func TestNewSubscriptionWithoutOwnerFails(t *testing.T) {
	d, store := setupTestDispatcher(t)
	// A user exists, but nothing ties the customer to it.
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})

	_, err := d.Dispatch(context.Background(), event.CheckoutCompleted{CustomerID: "cus_1"})
	require.ErrorIs(t, err, ErrNoOwner)
	assert.Nil(t, lookupSubscription(t, store, "cus_1"))

	_, err = d.Dispatch(context.Background(), event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_ghost"})
	require.ErrorIs(t, err, ErrNoOwner)
	assert.Nil(t, lookupSubscription(t, store, "cus_1"))
}

func TestLaterEventReownsSubscription(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_2"})
	mustDispatch(t, d, event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_1"})

	mustDispatch(t, d, event.SubscriptionUpdated{CustomerID: "cus_1", Status: "active", OwnerExternalID: "usr_2"})

	sub := lookupSubscription(t, store, "cus_1")
	require.NotNil(t, sub)
	assert.Equal(t, lookupUser(t, store, "usr_2").ID, sub.UserID)
}

func TestSubscriptionSurvivesOwnerDeletion(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	mustDispatch(t, d, event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_1"})
	mustDispatch(t, d, event.UserDeleted{ExternalID: "usr_1"})

	// The owner is gone; patching still succeeds and leaves the row in place.
	out := mustDispatch(t, d, event.SubscriptionUpdated{CustomerID: "cus_1", Status: "unpaid"})
	assert.Equal(t, OutcomeUpdated, out)

	sub := lookupSubscription(t, store, "cus_1")
	require.NotNil(t, sub)
	assert.Equal(t, "unpaid", sub.Status)
}

func TestScheduleCanceled(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	mustDispatch(t, d, event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_1"})

	assert.Equal(t, OutcomeUpdated, mustDispatch(t, d, event.ScheduleCanceled{CustomerID: "cus_1"}))
	assert.Equal(t, state.StatusCanceled, lookupSubscription(t, store, "cus_1").Status)

	assert.Equal(t, OutcomeNoop, mustDispatch(t, d, event.ScheduleCanceled{CustomerID: "cus_unknown"}))
	assert.Nil(t, lookupSubscription(t, store, "cus_unknown"))
}

func TestCanceledIsNotTerminal(t *testing.T) {
	d, store := setupTestDispatcher(t)
	mustDispatch(t, d, event.UserUpserted{Type: event.KindUserCreated, ExternalID: "usr_1"})
	mustDispatch(t, d, event.CheckoutCompleted{CustomerID: "cus_1", OwnerExternalID: "usr_1"})
	mustDispatch(t, d, event.ScheduleCanceled{CustomerID: "cus_1"})
	mustDispatch(t, d, event.SubscriptionUpdated{CustomerID: "cus_1", Status: "active"})

	assert.Equal(t, "active", lookupSubscription(t, store, "cus_1").Status)
}

func TestUnrecognizedEventIsIgnored(t *testing.T) {
	d, _ := setupTestDispatcher(t)
	assert.Equal(t, OutcomeIgnored, mustDispatch(t, d, event.Unrecognized{Type: "invoice.paid"}))
}

func TestLinkCustomerRequiresIDs(t *testing.T) {
	d, _ := setupTestDispatcher(t)
	assert.Error(t, d.LinkCustomer(context.Background(), "", "usr_1"))
	assert.Error(t, d.LinkCustomer(context.Background(), "cus_1", ""))
}
