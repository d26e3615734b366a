package model

import (
	"time"

	"github.com/google/uuid"
)

// Favourite marks either a business or a product for a user, never both.
type Favourite struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	BusinessID *uuid.UUID `json:"business_id,omitempty" db:"business_id"`
	ProductID  *uuid.UUID `json:"product_id,omitempty" db:"product_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks that exactly one target is set.
func (f Favourite) Validate() error {
	if (f.BusinessID == nil) == (f.ProductID == nil) {
		return InvalidRequest("a favourite must reference exactly one of business_id or product_id")
	}
	return nil
}
