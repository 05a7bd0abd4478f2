package settlement

import (
	"time"

	"github.com/google/uuid"
)

// DependentOrderKind identifies the clinical module owning the order
type DependentOrderKind string

const (
	DependentOrderLab       DependentOrderKind = "LAB"
	DependentOrderRadiology DependentOrderKind = "RADIOLOGY"
)

// DependentOrder is a lab or radiology order that may only proceed once the
// patient's share of the encounter is paid. Only the settlement flag is
// written here; the order lifecycle belongs to its module.
type DependentOrder struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	EncounterID        uuid.UUID
	Kind               DependentOrderKind
	PaymentSettled     bool
	SettledAt          *time.Time
	SettledByInvoiceID *uuid.UUID
}

// MarkSettled flags the order as paid through invoiceID. It returns false when the
// order was already settled.
func (o *DependentOrder) MarkSettled(invoiceID uuid.UUID, at time.Time) bool {
	if o.PaymentSettled {
		return false
	}
	at = at.UTC()
	o.PaymentSettled = true
	o.SettledAt = &at
	o.SettledByInvoiceID = &invoiceID
	return true
}
