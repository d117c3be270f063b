package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DistributionKind labels what a DistributionResult paid for.
type DistributionKind string

const (
	KindContribution DistributionKind = "contribution" // tier 0, capital call
	KindPreferred    DistributionKind = "preferred"    // tier 1, return of capital + pref
	KindCatchUp      DistributionKind = "catch_up"     // tier 1, GP catch-up tranche
	KindPromote      DistributionKind = "promote"      // hurdle-gated promote tier
	KindResidual     DistributionKind = "residual"     // uncapped split after the last hurdle
)

// ContributionTier is the tier number recorded for capital calls.
const ContributionTier = 0

// ──────────────────────────────────────────────────────────────────────────────
// DistributionResult
// ──────────────────────────────────────────────────────────────────────────────

// DistributionResult is one cash movement between the deal and a partner.
//
// Amount is signed from the partner's point of view: contributions are
// negative, distributions positive. IRR is the partner's IRR over its history
// up to and including this movement.
type DistributionResult struct {
	PeriodID              int              `json:"period_id"`
	Date                  time.Time        `json:"date"`
	PartnerID             uuid.UUID        `json:"partner_id"`
	PartnerName           string           `json:"partner_name"`
	Role                  PartnerRole      `json:"role"`
	Tier                  int              `json:"tier"`
	Kind                  DistributionKind `json:"kind"`
	Amount                decimal.Decimal  `json:"amount"`
	CumulativeDistributed decimal.Decimal  `json:"cumulative_distributed"`
	IRR                   float64          `json:"irr"`
}

// IsContribution returns true for tier-0 records.
func (d *DistributionResult) IsContribution() bool {
	return d.Tier == ContributionTier
}

// ──────────────────────────────────────────────────────────────────────────────
// PartnerFinalState
// ──────────────────────────────────────────────────────────────────────────────

// PartnerFinalState summarises a partner at the end of the run.
type PartnerFinalState struct {
	PartnerID        uuid.UUID       `json:"partner_id"`
	Name             string          `json:"name"`
	Role             PartnerRole     `json:"role"`
	OwnershipShare   decimal.Decimal `json:"ownership_share"`
	TotalContributed decimal.Decimal `json:"total_contributed"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	IRR              float64         `json:"irr"`
	EquityMultiple   decimal.Decimal `json:"equity_multiple"`
}

// Profit returns distributions net of contributions.
func (s *PartnerFinalState) Profit() decimal.Decimal {
	return s.TotalDistributed.Sub(s.TotalContributed)
}

// EquityMultiple returns distributed ÷ contributed, or zero when nothing was
// contributed.
func EquityMultiple(distributed, contributed decimal.Decimal) decimal.Decimal {
	if !contributed.IsPositive() {
		return decimal.Zero
	}
	return distributed.Div(contributed)
}

// ──────────────────────────────────────────────────────────────────────────────
// PeriodAccrual
// ──────────────────────────────────────────────────────────────────────────────

// PeriodAccrual is the per-period movement of one partner's owed account at
// one tier. OpeningBalance is after accrual, ClosingBalance after allocation.
type PeriodAccrual struct {
	PeriodID       int             `json:"period_id"`
	Date           time.Time       `json:"date"`
	PartnerID      uuid.UUID       `json:"partner_id"`
	Tier           int             `json:"tier"`
	Accrued        decimal.Decimal `json:"accrued"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// ──────────────────────────────────────────────────────────────────────────────
// WaterfallResult
// ──────────────────────────────────────────────────────────────────────────────

// WaterfallResult is everything one engine run produces.
type WaterfallResult struct {
	Distributions  []DistributionResult `json:"distributions"`
	PartnerStates  []PartnerFinalState  `json:"partner_states"`
	PeriodAccruals []PeriodAccrual      `json:"period_accruals"`
}

// IsEmpty returns true when the run produced nothing (degenerate input).
func (r *WaterfallResult) IsEmpty() bool {
	return len(r.Distributions) == 0 && len(r.PartnerStates) == 0 && len(r.PeriodAccruals) == 0
}

// PeriodTotal returns the sum of positive distributions paid in a period.
func (r *WaterfallResult) PeriodTotal(periodID int) decimal.Decimal {
	var total decimal.Decimal
	for i := range r.Distributions {
		d := &r.Distributions[i]
		if d.PeriodID == periodID && !d.IsContribution() {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// StateFor returns the final state of the given partner, or nil.
func (r *WaterfallResult) StateFor(id uuid.UUID) *PartnerFinalState {
	for i := range r.PartnerStates {
		if r.PartnerStates[i].PartnerID == id {
			return &r.PartnerStates[i]
		}
	}
	return nil
}
