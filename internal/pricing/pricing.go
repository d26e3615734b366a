// Package pricing computes cart and order totals.
//
// A single pure function, Compute, is shared by the cart and order engines so
// that both aggregates derive their monetary fields the same way:
//
//	subtotal       = Σ quantity * price
//	discount_total = Σ quantity * discount
//	effective      = max(subtotal - discount_total, 0)
//	taxes          = round(effective * tax_rate)
//	total          = effective + taxes + delivery_fee
//
// Delivery fee is only charged when there is at least one line.
package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one priced line item.
type Line struct {
	Quantity     int
	UnitPrice    decimal.Decimal
	UnitDiscount decimal.Decimal
}

// Totals holds the monetary fields of a cart or order.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Taxes         decimal.Decimal `json:"taxes"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
}

// ZeroTotals returns totals with every field set to zero.
func ZeroTotals() Totals {
	return Totals{
		Subtotal:      Zero(),
		DiscountTotal: Zero(),
		Taxes:         Zero(),
		DeliveryFee:   Zero(),
		Total:         Zero(),
	}
}

// Effective returns max(subtotal - discount_total, 0).
func (t Totals) Effective() decimal.Decimal {
	return decimal.Max(t.Subtotal.Sub(t.DiscountTotal), decimal.Zero)
}

// Equal reports whether two totals carry the same amounts.
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) &&
		t.DiscountTotal.Equal(o.DiscountTotal) &&
		t.Taxes.Equal(o.Taxes) &&
		t.DeliveryFee.Equal(o.DeliveryFee) &&
		t.Total.Equal(o.Total)
}

// Params are the deployment constants a computation runs with.
type Params struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

// Compute derives totals from scratch for the given lines.
func Compute(lines []Line, p Params) Totals {
	if len(lines) == 0 {
		return ZeroTotals()
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal = subtotal.Add(l.UnitPrice.Mul(qty))
		discount = discount.Add(l.UnitDiscount.Mul(qty))
	}

	subtotal = Round(subtotal)
	discount = Round(discount)
	effective := decimal.Max(subtotal.Sub(discount), decimal.Zero)
	taxes := Round(effective.Mul(p.TaxRate))
	fee := Round(p.DeliveryFee)

	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discount,
		Taxes:         taxes,
		DeliveryFee:   fee,
		Total:         Round(effective.Add(taxes).Add(fee)),
	}
}

// Config is the injected pricing configuration.
type Config struct {
	TaxRate         decimal.Decimal
	BaseDeliveryFee decimal.Decimal
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be between 0 and 1, got %s", c.TaxRate)
	}
	if c.BaseDeliveryFee.IsNegative() {
		return fmt.Errorf("delivery fee must not be negative, got %s", c.BaseDeliveryFee)
	}
	return nil
}

// FeeSchedule provides per-business delivery fee overrides.
type FeeSchedule interface {
	DeliveryFee(businessID uuid.UUID) (decimal.Decimal, bool)
}

// Pricer resolves pricing parameters per business and computes totals.
type Pricer struct {
	cfg      Config
	schedule FeeSchedule
}

// NewPricer creates a pricer. schedule may be nil.
func NewPricer(cfg Config, schedule FeeSchedule) *Pricer {
	return &Pricer{cfg: cfg, schedule: schedule}
}

// ParamsFor returns the parameters to price a basket of the given business.
func (p *Pricer) ParamsFor(businessID uuid.UUID) Params {
	fee := p.cfg.BaseDeliveryFee
	if p.schedule != nil {
		if override, ok := p.schedule.DeliveryFee(businessID); ok {
			fee = override
		}
	}
	return Params{TaxRate: p.cfg.TaxRate, DeliveryFee: fee}
}

// Compute prices lines for the given business.
func (p *Pricer) Compute(businessID uuid.UUID, lines []Line) Totals {
	return Compute(lines, p.ParamsFor(businessID))
}
