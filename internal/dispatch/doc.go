// Package dispatch routes parsed webhook events to the handlers that project
// them into state.
//
// Routing is an explicit table from event kind to handler:
//   - user.created, user.updated → upsertUser
//   - user.deleted → deleteUser
//   - checkout.session.completed, customer.subscription.updated → upsertSubscription
//   - subscription_schedule.canceled → cancelSubscription
//
// Kinds outside the table are logged and ignored so the provider still
// receives a success response.
//
// Each handler runs inside a single store transaction. Handlers are
// idempotent: replaying an event converges on the same rows.
//
// Subscription ownership:
//   - The owner is the external user id carried by the event (checkout
//     client_reference_id or metadata), falling back to the customer link
//     recorded for the payment customer.
//   - An owner found on the event is recorded as the customer's link.
//   - A new subscription with no resolvable owner fails with ErrNoOwner and
//     is left for the provider to redeliver.
package dispatch
