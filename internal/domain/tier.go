package domain

import (
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// HurdleKind selects the test a promote tier applies before the promote split
// kicks in.
type HurdleKind string

const (
	HurdleNone     HurdleKind = "none"     // tier 1 and the residual tier
	HurdleIRR      HurdleKind = "irr"      // LP IRR must reach HurdleRate
	HurdleMultiple HurdleKind = "multiple" // LP equity multiple must reach HurdleMultiple
	HurdleHybrid   HurdleKind = "hybrid"   // both of the above
)

// IsValid returns true for a recognised hurdle kind. The empty kind is valid
// and means "use the waterfall's hurdle method".
func (k HurdleKind) IsValid() bool {
	switch k {
	case "", HurdleNone, HurdleIRR, HurdleMultiple, HurdleHybrid:
		return true
	}
	return false
}

// UsesIRR returns true when the hurdle includes an IRR test.
func (k HurdleKind) UsesIRR() bool {
	return k == HurdleIRR || k == HurdleHybrid
}

// UsesMultiple returns true when the hurdle includes an equity-multiple test.
func (k HurdleKind) UsesMultiple() bool {
	return k == HurdleMultiple || k == HurdleHybrid
}

// ──────────────────────────────────────────────────────────────────────────────
// Tier
// ──────────────────────────────────────────────────────────────────────────────

// Tier is one step of the distribution cascade.
//
// Tier 1 is the preferred return plus return of capital; tiers 2..N-1 are
// hurdle-gated promote tiers; tier N is the residual split. Nil hurdle fields
// and an all-zero split fall back to the engine defaults.
type Tier struct {
	Number         int              `json:"tier"            db:"tier_number"`
	HurdleKind     HurdleKind       `json:"hurdle_kind"     db:"hurdle_kind"`
	HurdleRate     *float64         `json:"hurdle_rate"     db:"hurdle_rate"`     // annual, 0.12 = 12 %
	HurdleMultiple *decimal.Decimal `json:"hurdle_multiple" db:"hurdle_multiple"` // e.g. 1.5x
	LPSplit        decimal.Decimal  `json:"lp_split"        db:"lp_split"`
	GPSplit        decimal.Decimal  `json:"gp_split"        db:"gp_split"`
	PromotePct     *decimal.Decimal `json:"promote_pct"     db:"promote_pct"`
}

// HasSplit returns true when at least one side of the split was stated.
func (t *Tier) HasSplit() bool {
	return t.LPSplit.IsPositive() || t.GPSplit.IsPositive()
}

// NormalizedSplit returns the LP/GP split scaled to sum to 1. Negative legs are
// treated as zero. ok is false when neither leg is positive.
func (t *Tier) NormalizedSplit() (lp, gp decimal.Decimal, ok bool) {
	if !t.HasSplit() {
		return decimal.Zero, decimal.Zero, false
	}
	lp = decimal.Max(t.LPSplit, decimal.Zero)
	gp = decimal.Max(t.GPSplit, decimal.Zero)
	lp = lp.Div(lp.Add(gp))
	return lp, decimal.NewFromInt(1).Sub(lp), true
}
