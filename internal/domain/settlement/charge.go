package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ServiceType classifies a billable charge
type ServiceType string

const (
	ServiceTypeService   ServiceType = "SERVICE"
	ServiceTypePharmacy  ServiceType = "PHARMACY"
	ServiceTypeLab       ServiceType = "LAB"
	ServiceTypeRadiology ServiceType = "RADIOLOGY"
	ServiceTypeRoom      ServiceType = "ROOM"
)

// IsValid checks if the service type is valid
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceTypeService, ServiceTypePharmacy, ServiceTypeLab,
		ServiceTypeRadiology, ServiceTypeRoom:
		return true
	}
	return false
}

// Charge is a billable line produced by clinical modules for an encounter.
// It becomes part of an invoice once invoiced and is never edited after.
type Charge struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	EncounterID      uuid.UUID
	InvoiceID        *uuid.UUID
	ServiceType      ServiceType
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	DependentOrderID *uuid.UUID
	ChargedAt        time.Time
	CreatedAt        time.Time
}

// NewCharge creates an uninvoiced charge
func NewCharge(tenantID, encounterID uuid.UUID, serviceType ServiceType, description string, quantity, unitPrice decimal.Decimal) (*Charge, error) {
	if encounterID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Encounter is required")
	}
	if !serviceType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid service type")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Unit price cannot be negative")
	}
	now := time.Now().UTC()
	return &Charge{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EncounterID: encounterID,
		ServiceType: serviceType,
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice).RoundBank(3),
		ChargedAt:   now,
		CreatedAt:   now,
	}, nil
}

// IsInvoiced reports whether the charge belongs to an invoice
func (c *Charge) IsInvoiced() bool {
	return c.InvoiceID != nil
}

// SumCharges returns the total amount of charges
func SumCharges(charges []Charge) decimal.Decimal {
	total := decimal.Zero
	for _, c := range charges {
		total = total.Add(c.Amount)
	}
	return total
}
