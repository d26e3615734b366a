// Package feeschedule loads per-business delivery-fee overrides from gzipped
// "business_uuid,fee" files stored locally or in S3.
package feeschedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loader defines the interface for loading fee files.
type Loader interface {
	// Load reads a gzipped fee file and returns its table.
	Load(ctx context.Context, path string) (*Table, error)
}

// Table maps a business to its delivery fee.
type Table struct {
	fees map[uuid.UUID]decimal.Decimal
}

// NewTable creates an empty table.
func NewTable(capacity int) *Table {
	return &Table{fees: make(map[uuid.UUID]decimal.Decimal, capacity)}
}

// Set records the fee of a business, replacing any earlier value.
func (t *Table) Set(businessID uuid.UUID, fee decimal.Decimal) {
	t.fees[businessID] = fee
}

// Fee returns the fee of a business.
func (t *Table) Fee(businessID uuid.UUID) (decimal.Decimal, bool) {
	fee, ok := t.fees[businessID]
	return fee, ok
}

// Size returns the number of businesses in the table.
func (t *Table) Size() int {
	return len(t.fees)
}

// Merge copies every entry of other over t.
func (t *Table) Merge(other *Table) {
	for id, fee := range other.fees {
		t.fees[id] = fee
	}
}
