package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents an item in a business catalogue.
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	BusinessID  uuid.UUID       `json:"business_id" db:"business_id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Discount    decimal.Decimal `json:"discount" db:"discount"`
	Stock       int             `json:"stock" db:"stock"`
	Available   bool            `json:"available" db:"available"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
