package model

import (
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCanceled, OrderStatusFailed},
	OrderStatusInProgress: {OrderStatusDelivered, OrderStatusCanceled, OrderStatusFailed},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusDelivered, OrderStatusCanceled, OrderStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled || s == OrderStatusFailed
}

// CanTransitionTo reports whether s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// CanTransitionTo reports whether s may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && (next == PaymentStatusPaid || next == PaymentStatusFailed)
}

// ApplyPatch applies an allow-listed patch in place. Re-sending the current
// state is a no-op. It returns whether anything changed.
func (o *Order) ApplyPatch(p OrderPatch, now time.Time) (bool, error) {
	changed := false

	if p.Status != nil && *p.Status != o.Status {
		next := *p.Status
		if !next.Valid() {
			return false, InvalidRequest("unknown order status %q", next)
		}
		if !o.Status.CanTransitionTo(next) {
			return false, NewDomainError(KindInvalidRequest, ErrCodeInvalidTransition,
				"cannot move order from "+string(o.Status)+" to "+string(next))
		}
		o.Status = next
		switch next {
		case OrderStatusDelivered:
			if o.CompletedAt == nil {
				o.CompletedAt = &now
			}
		case OrderStatusCanceled, OrderStatusFailed:
			if o.CanceledAt == nil {
				o.CanceledAt = &now
			}
		}
		changed = true
	}

	if p.PaymentStatus != nil && *p.PaymentStatus != o.PaymentStatus {
		next := *p.PaymentStatus
		if !next.Valid() {
			return false, InvalidRequest("unknown payment status %q", next)
		}
		if !o.PaymentStatus.CanTransitionTo(next) {
			return false, NewDomainError(KindInvalidRequest, ErrCodeInvalidTransition,
				"cannot move payment from "+string(o.PaymentStatus)+" to "+string(next))
		}
		o.PaymentStatus = next
		changed = true
	}

	if p.DeliveryTime != nil {
		t := *p.DeliveryTime
		o.DeliveryTime = &t
		changed = true
	}

	if p.Notes != nil {
		n := *p.Notes
		o.Notes = &n
		changed = true
	}

	if changed {
		o.UpdatedAt = now
	}
	return changed, nil
}
