package waterfall

import (
	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
)

// hurdleEpsilon absorbs solver tolerance when comparing an IRR to its hurdle.
const hurdleEpsilon = 1e-9

// allocatePromote runs promote tier idx and returns the cash that rolls on.
//
// The LP class hurdle is re-evaluated from the full LP history to date. When
// it is not met the LPs receive the tier's LP split of the remaining cash,
// capped at what they are still owed at this tier, and the GPs receive the
// complementary split of the LP amount actually paid. Once met, the tier
// splits all remaining cash with no cap.
func (r *run) allocatePromote(cf domain.CashFlowEvent, idx int, cash decimal.Decimal) decimal.Decimal {
	if !cash.IsPositive() {
		return cash
	}
	t := r.tiers[idx]

	met := r.hurdleMet(t)
	if met {
		r.trace(TracePromote, "hurdle met, uncapped split", map[string]any{
			"period": cf.PeriodID,
			"tier":   t.number,
			"cash":   cash.StringFixed(4),
		})
		return r.splitUncapped(cf, idx, cash, domain.KindPromote)
	}

	if !t.lpSplit.IsPositive() || len(r.lps) == 0 {
		return cash
	}

	var lpCap decimal.Decimal
	for _, ps := range r.lps {
		lpCap = lpCap.Add(ps.owed(idx))
	}
	lpTarget := decimal.Min(cash.Mul(t.lpSplit).RoundDown(moneyPlaces), lpCap)
	if !lpTarget.IsPositive() {
		return cash
	}

	amounts := make([]decimal.Decimal, len(r.partners))
	r.allocateOwed(r.lps, idx, lpTarget, amounts)
	var lpPaid decimal.Decimal
	for _, ps := range r.lps {
		lpPaid = lpPaid.Add(amounts[ps.index])
	}

	gpAmount := decimal.Zero
	if len(r.gps) > 0 {
		gpAmount = lpPaid.Mul(t.gpSplit).Div(t.lpSplit).RoundDown(moneyPlaces)
		gpAmount = decimal.Min(gpAmount, cash.Sub(lpPaid))
		r.spread(r.gps, gpAmount, amounts)
	}

	paid := r.payAll(cf, idx, amounts, domain.KindPromote)
	r.trace(TracePromote, "hurdle not met, capped split", map[string]any{
		"period":  cf.PeriodID,
		"tier":    t.number,
		"lp_cap":  lpCap.StringFixed(4),
		"lp_paid": lpPaid.StringFixed(4),
		"gp_paid": paid.Sub(lpPaid).StringFixed(4),
	})
	return cash.Sub(paid)
}

// hurdleMet evaluates the tier's hurdle against the LP class to date.
func (r *run) hurdleMet(t resolvedTier) bool {
	if t.kind.UsesIRR() {
		if r.lpIRR() < t.rate-hurdleEpsilon {
			return false
		}
	}
	if t.kind.UsesMultiple() {
		if r.lpMultiple().LessThan(t.multiple) {
			return false
		}
	}
	return true
}
