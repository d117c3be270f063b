package waterfall

import (
	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
)

// allocatePreferred pays tier 1 (return of capital plus preferred return) and
// returns the cash left over.
//
//	pari passu: one pool, proportional to each partner's owed balance, capped
//	            at that balance, freed capacity redirected to those still owed.
//	LP first:   the same rule among LPs only, then among GPs with what is left.
func (r *run) allocatePreferred(cf domain.CashFlowEvent, cash decimal.Decimal) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(r.partners))

	switch r.settings.ReturnOfCapital {
	case domain.PolicyLPFirst:
		cash = r.allocateOwed(r.lps, 0, cash, amounts)
		cash = r.allocateOwed(r.gps, 0, cash, amounts)
	default:
		cash = r.allocateOwed(r.partners, 0, cash, amounts)
	}

	paid := r.payAll(cf, 0, amounts, domain.KindPreferred)
	if paid.IsPositive() {
		r.trace(TracePreferred, "tier 1 allocated", map[string]any{
			"period":    cf.PeriodID,
			"policy":    string(r.settings.ReturnOfCapital),
			"paid":      paid.StringFixed(4),
			"remaining": cash.StringFixed(4),
		})
	}
	return cash
}

// allocateOwed fills amounts for group from cash, proportional to and capped
// by their owed balances at tier position idx. Returns the unspent cash.
func (r *run) allocateOwed(group []*partnerState, idx int, cash decimal.Decimal, amounts []decimal.Decimal) decimal.Decimal {
	if len(group) == 0 || !cash.IsPositive() {
		return cash
	}
	owed := make([]decimal.Decimal, len(group))
	for i, ps := range group {
		owed[i] = ps.owed(idx)
	}
	alloc := allocateCapped(cash, owed, owed)
	for i, ps := range group {
		amounts[ps.index] = amounts[ps.index].Add(alloc[i])
	}
	return cash.Sub(sum(alloc))
}

// allocateCatchUp runs the GP catch-up once every LP's tier-1 balance is paid
// off. Cash goes entirely to the GPs until their share of cumulative tier-1
// profit (preferred return plus catch-up) reaches the target promote share:
//
//	C = (target × LPprofit − (1 − target) × GPprofit) / (1 − target)
func (r *run) allocateCatchUp(cf domain.CashFlowEvent, cash decimal.Decimal) decimal.Decimal {
	if !r.settings.GPCatchUp || !cash.IsPositive() || len(r.gps) == 0 || len(r.lps) == 0 {
		return cash
	}
	for _, ps := range r.lps {
		if ps.owed(0).IsPositive() {
			return cash
		}
	}

	target := r.catchUpTarget
	one := decimal.NewFromInt(1)
	if !target.IsPositive() || target.GreaterThanOrEqual(one) {
		return cash
	}

	var lpProfit, gpProfit decimal.Decimal
	for _, ps := range r.lps {
		lpProfit = lpProfit.Add(ps.prefProfit)
	}
	for _, ps := range r.gps {
		gpProfit = gpProfit.Add(ps.prefProfit).Add(ps.catchUp)
	}

	rest := one.Sub(target)
	needed := target.Mul(lpProfit).Sub(rest.Mul(gpProfit)).Div(rest).RoundDown(moneyPlaces)
	if !needed.IsPositive() {
		return cash
	}

	tranche := decimal.Min(needed, cash)
	amounts := make([]decimal.Decimal, len(r.partners))
	r.spread(r.gps, tranche, amounts)
	paid := r.payAll(cf, 0, amounts, domain.KindCatchUp)

	r.trace(TraceCatchUp, "gp catch-up paid", map[string]any{
		"period": cf.PeriodID,
		"target": target.String(),
		"needed": needed.StringFixed(4),
		"paid":   paid.StringFixed(4),
	})
	return cash.Sub(paid)
}
