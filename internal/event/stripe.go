package event

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
)

// ParseStripe decodes a payment-provider delivery. The data.object payload is
// decoded through stripe-go so expandable fields such as customer accept both
// the bare id string and the nested object form.
func ParseStripe(body []byte) (Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, malformed("decode envelope: %v", err)
	}
	if ev.Type == "" {
		return nil, malformed("missing type")
	}

	switch Kind(ev.Type) {
	case KindCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := decodeObject(&ev, &s); err != nil {
			return nil, err
		}
		customerID := customerID(s.Customer)
		if customerID == "" {
			return nil, malformed("%s: missing customer", ev.Type)
		}
		out := CheckoutCompleted{
			CustomerID:      customerID,
			Plan:            s.Metadata["plan"],
			OwnerExternalID: s.ClientReferenceID,
		}
		if out.OwnerExternalID == "" {
			out.OwnerExternalID = ownerFromMetadata(s.Metadata)
		}
		if s.Subscription != nil {
			out.SubscriptionID = s.Subscription.ID
		}
		return out, nil

	case KindSubscriptionUpdated:
		var s stripe.Subscription
		if err := decodeObject(&ev, &s); err != nil {
			return nil, err
		}
		customerID := customerID(s.Customer)
		if customerID == "" {
			return nil, malformed("%s: missing customer", ev.Type)
		}
		if s.Status == "" {
			return nil, malformed("%s: missing status", ev.Type)
		}
		return SubscriptionUpdated{
			CustomerID:      customerID,
			SubscriptionID:  s.ID,
			Status:          string(s.Status),
			Plan:            subscriptionPlan(&s),
			OwnerExternalID: ownerFromMetadata(s.Metadata),
		}, nil

	case KindSubscriptionScheduleCanceled:
		var s stripe.SubscriptionSchedule
		if err := decodeObject(&ev, &s); err != nil {
			return nil, err
		}
		customerID := customerID(s.Customer)
		if customerID == "" {
			return nil, malformed("%s: missing customer", ev.Type)
		}
		return ScheduleCanceled{CustomerID: customerID}, nil

	default:
		return Unrecognized{Type: string(ev.Type)}, nil
	}
}

func decodeObject(ev *stripe.Event, v any) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 || string(ev.Data.Raw) == "null" {
		return malformed("%s: missing data.object", ev.Type)
	}
	if err := json.Unmarshal(ev.Data.Raw, v); err != nil {
		return malformed("%s: decode data.object: %v", ev.Type, err)
	}
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// subscriptionPlan names the first item's price, preferring its lookup key.
func subscriptionPlan(s *stripe.Subscription) string {
	if s.Items == nil || len(s.Items.Data) == 0 {
		return s.Metadata["plan"]
	}
	price := s.Items.Data[0].Price
	if price == nil {
		return s.Metadata["plan"]
	}
	if price.LookupKey != "" {
		return price.LookupKey
	}
	return price.ID
}
