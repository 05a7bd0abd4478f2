package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LiabilitySplitter prices an encounter's charges and splits the liability
// between patient and insurer. Insurer rules live outside this module.
type LiabilitySplitter interface {
	Split(ctx context.Context, tenantID, patientID, encounterID uuid.UUID, charges []Charge) (LiabilitySplit, error)
}

// PatientPaysAll is the splitter used when no insurer is involved
type PatientPaysAll struct{}

// Split charges the full total to the patient
func (PatientPaysAll) Split(_ context.Context, _, _, _ uuid.UUID, charges []Charge) (LiabilitySplit, error) {
	total := SumCharges(charges)
	share := total
	return LiabilitySplit{
		TotalAmount:    total,
		DiscountAmount: decimal.Zero,
		PatientShare:   &share,
		InsuranceShare: decimal.Zero,
	}, nil
}

// FixedSplit applies a caller-supplied split, typically computed by the
// insurer module and passed through the billing workflow.
type FixedSplit struct {
	Discount       decimal.Decimal
	PatientShare   *decimal.Decimal
	InsuranceShare decimal.Decimal
}

// Split returns the configured split over the charge total
func (f FixedSplit) Split(_ context.Context, _, _, _ uuid.UUID, charges []Charge) (LiabilitySplit, error) {
	return LiabilitySplit{
		TotalAmount:    SumCharges(charges),
		DiscountAmount: f.Discount,
		PatientShare:   f.PatientShare,
		InsuranceShare: f.InsuranceShare,
	}, nil
}
