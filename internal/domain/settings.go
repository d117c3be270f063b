package domain

import "time"

// HurdleMethod is the deal-wide default test for promote tiers.
type HurdleMethod string

const (
	MethodIRR      HurdleMethod = "irr"
	MethodMultiple HurdleMethod = "multiple"
	MethodHybrid   HurdleMethod = "hybrid"
)

// HurdleKind maps the deal-wide method onto the per-tier hurdle kind.
func (m HurdleMethod) HurdleKind() HurdleKind {
	switch m {
	case MethodMultiple:
		return HurdleMultiple
	case MethodHybrid:
		return HurdleHybrid
	default:
		return HurdleIRR
	}
}

// CapitalPolicy decides how tier 1 treats LP and GP claims.
type CapitalPolicy string

const (
	PolicyPariPassu CapitalPolicy = "pari_passu" // proportional to what each is owed
	PolicyLPFirst   CapitalPolicy = "lp_first"   // LPs made whole before any GP tier-1 cash
)

// WaterfallSettings are the deal-level switches of the cascade.
type WaterfallSettings struct {
	HurdleMethod    HurdleMethod  `json:"hurdle_method"     db:"hurdle_method"`
	TierCount       int           `json:"tier_count"        db:"tier_count"` // 0 = use every tier supplied
	ReturnOfCapital CapitalPolicy `json:"return_of_capital" db:"return_of_capital"`
	GPCatchUp       bool          `json:"gp_catch_up"       db:"gp_catch_up"`
	// StartDate dates the opening balances when partners' capital is not
	// supplied as negative cash flows. Nil means the first cash-flow date.
	StartDate *time.Time `json:"start_date,omitempty" db:"start_date"`
}

// DefaultSettings returns pari-passu, IRR hurdles, no catch-up.
func DefaultSettings() WaterfallSettings {
	return WaterfallSettings{
		HurdleMethod:    MethodIRR,
		ReturnOfCapital: PolicyPariPassu,
	}
}
