package model

import (
	"github.com/google/uuid"
)

// PaymentMethod is a stored card reference. Only the last four digits of the
// card number are kept.
type PaymentMethod struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"-" db:"user_id"`
	NameOnCard string    `json:"name_on_card" db:"name_on_card"`
	CardLast4  string    `json:"card_last4" db:"card_last4"`
	Expiry     string    `json:"expiry" db:"expiry"`
	Alias      *string   `json:"alias,omitempty" db:"alias"`
	Provider   *string   `json:"provider,omitempty" db:"provider"`
	IsMain     bool      `json:"is_main" db:"is_main"`
}

// PaymentMethodRequest is the payload for creating a payment method.
type PaymentMethodRequest struct {
	NameOnCard string  `json:"name_on_card"`
	CardNumber string  `json:"card_number"`
	Expiry     string  `json:"expiry"`
	Alias      *string `json:"alias,omitempty"`
	Provider   *string `json:"provider,omitempty"`
	IsMain     bool    `json:"is_main"`
}

// PaymentMethodPatch lists the fields that may be updated.
type PaymentMethodPatch struct {
	NameOnCard *string `json:"name_on_card,omitempty"`
	Expiry     *string `json:"expiry,omitempty"`
	Alias      *string `json:"alias,omitempty"`
	Provider   *string `json:"provider,omitempty"`
	IsMain     *bool   `json:"is_main,omitempty"`
}

// Apply copies the set fields onto pm.
func (p PaymentMethodPatch) Apply(pm *PaymentMethod) {
	if p.NameOnCard != nil {
		pm.NameOnCard = *p.NameOnCard
	}
	if p.Expiry != nil {
		pm.Expiry = *p.Expiry
	}
	if p.Alias != nil {
		pm.Alias = p.Alias
	}
	if p.Provider != nil {
		pm.Provider = p.Provider
	}
	if p.IsMain != nil {
		pm.IsMain = *p.IsMain
	}
}
