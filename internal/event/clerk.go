package event

import (
	"encoding/json"
)

// clerkEnvelope is the outer document of an identity-provider delivery.
type clerkEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type clerkUser struct {
	ID                    string              `json:"id"`
	FirstName             string              `json:"first_name"`
	LastName              string              `json:"last_name"`
	ImageURL              string              `json:"image_url"`
	PrimaryEmailAddressID string              `json:"primary_email_address_id"`
	EmailAddresses        []clerkEmailAddress `json:"email_addresses"`
}

type clerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// primaryEmail prefers the address flagged as primary, then the first one.
func (u clerkUser) primaryEmail() string {
	for _, addr := range u.EmailAddresses {
		if addr.ID != "" && addr.ID == u.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

type clerkDeletedObject struct {
	ID string `json:"id"`
}

// ParseClerk decodes an identity-provider delivery.
func ParseClerk(body []byte) (Event, error) {
	var env clerkEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed("decode envelope: %v", err)
	}
	if env.Type == "" {
		return nil, malformed("missing type")
	}

	switch Kind(env.Type) {
	case KindUserCreated, KindUserUpdated:
		var u clerkUser
		if err := decodeData(env.Data, &u); err != nil {
			return nil, err
		}
		if u.ID == "" {
			return nil, malformed("%s: missing user id", env.Type)
		}
		return UserUpserted{
			Type:       Kind(env.Type),
			ExternalID: u.ID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Email:      u.primaryEmail(),
			ImageURL:   u.ImageURL,
		}, nil

	case KindUserDeleted:
		var d clerkDeletedObject
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		if d.ID == "" {
			return nil, malformed("%s: missing user id", env.Type)
		}
		return UserDeleted{ExternalID: d.ID}, nil

	default:
		return Unrecognized{Type: env.Type}, nil
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return malformed("missing data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return malformed("decode data: %v", err)
	}
	return nil
}
