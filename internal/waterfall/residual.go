package waterfall

import (
	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
)

// allocateResidual splits whatever is left after the last promote tier at the
// last tier's LP/GP split, with no cap.
func (r *run) allocateResidual(cf domain.CashFlowEvent, cash decimal.Decimal) decimal.Decimal {
	if !cash.IsPositive() {
		return cash
	}
	left := r.splitUncapped(cf, len(r.tiers)-1, cash, domain.KindResidual)
	r.trace(TraceResidual, "residual split", map[string]any{
		"period": cf.PeriodID,
		"tier":   r.tiers[len(r.tiers)-1].number,
		"cash":   cash.StringFixed(4),
	})
	return left
}

// splitUncapped divides all of cash at tier idx's split. Within a class the
// cash is shared by ownership; a class with no members cedes its share.
func (r *run) splitUncapped(cf domain.CashFlowEvent, idx int, cash decimal.Decimal, kind domain.DistributionKind) decimal.Decimal {
	t := r.tiers[idx]

	lpAmount := cash.Mul(t.lpSplit).RoundDown(moneyPlaces)
	switch {
	case len(r.gps) == 0:
		lpAmount = cash
	case len(r.lps) == 0:
		lpAmount = decimal.Zero
	}
	gpAmount := cash.Sub(lpAmount)

	amounts := make([]decimal.Decimal, len(r.partners))
	r.spread(r.lps, lpAmount, amounts)
	r.spread(r.gps, gpAmount, amounts)
	paid := r.payAll(cf, idx, amounts, kind)
	return cash.Sub(paid)
}

// spread adds amount to amounts across group by ownership share.
func (r *run) spread(group []*partnerState, amount decimal.Decimal, amounts []decimal.Decimal) {
	if len(group) == 0 || !amount.IsPositive() {
		return
	}
	weights := make([]decimal.Decimal, len(group))
	for i, ps := range group {
		weights[i] = ps.share
	}
	for i, part := range splitByWeight(amount, weights) {
		idx := group[i].index
		amounts[idx] = amounts[idx].Add(part)
	}
}
