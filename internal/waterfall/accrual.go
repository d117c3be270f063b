package waterfall

import (
	"math"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
)

// account is one partner's owed balance at one tier: principal plus
// compounded unpaid return.
//
// Growth is always computed from the last balance change (the anchor), not
// chained period by period, so a no-op period in between leaves the balance
// bit-identical.
type account struct {
	rate    float64         // annual compounding rate; 0 = no accrual
	scale   decimal.Decimal // contribution multiplier (equity-multiple tiers)
	base    decimal.Decimal // balance at anchor
	anchor  time.Time
	balance decimal.Decimal // balance as of the last accrual
	accrued decimal.Decimal // running total of growth
}

func newAccount(rate float64, scale decimal.Decimal, start time.Time) *account {
	if rate <= -1 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}
	return &account{
		rate:   rate,
		scale:  scale,
		anchor: start,
	}
}

// accrueTo compounds the balance up to t and returns the growth since the
// previous accrual.
//
//	balance = base × (1 + rate)^(days/365)
func (a *account) accrueTo(t time.Time) decimal.Decimal {
	if a.rate == 0 || !a.base.IsPositive() {
		return decimal.Zero
	}
	days := domain.DaysBetween(a.anchor, t)
	if days <= 0 {
		return decimal.Zero
	}
	f := math.Pow(1+a.rate, float64(days)/365)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	value := a.base.Mul(decimal.NewFromFloat(f))
	growth := value.Sub(a.balance)
	a.balance = value
	a.accrued = a.accrued.Add(growth)
	return growth
}

// credit adds a contribution, scaled for multiple-based tiers.
func (a *account) credit(amount decimal.Decimal, t time.Time) {
	a.balance = a.balance.Add(amount.Mul(a.scale))
	a.rebase(t)
}

// debit nets a payment off the balance, clamping at zero.
func (a *account) debit(amount decimal.Decimal, t time.Time) {
	a.balance = decimal.Max(a.balance.Sub(amount), decimal.Zero)
	a.rebase(t)
}

func (a *account) rebase(t time.Time) {
	a.base = a.balance
	a.anchor = t
}

// ──────────────────────────────────────────────────────────────────────────────
// Accrual step
// ──────────────────────────────────────────────────────────────────────────────

// accrue compounds every partner's accounts to the period date and opens the
// period's balance rows.
func (r *run) accrue(cf domain.CashFlowEvent) {
	for _, ps := range r.partners {
		for idx, acct := range ps.accounts {
			growth := acct.accrueTo(cf.Date)
			r.rows[ps.index][idx] = domain.PeriodAccrual{
				PeriodID:       cf.PeriodID,
				Date:           cf.Date,
				PartnerID:      ps.partner.ID,
				Tier:           r.tiers[idx].number,
				Accrued:        growth,
				OpeningBalance: acct.balance,
			}
			if !growth.IsZero() && r.verbose(cf.PeriodID) {
				r.trace(TraceAccrual, "tier balance accrued", map[string]any{
					"period":  cf.PeriodID,
					"partner": ps.partner.Name,
					"tier":    r.tiers[idx].number,
					"days":    domain.DaysBetween(ps.lastAccrual, cf.Date),
					"growth":  growth.StringFixed(4),
					"balance": acct.balance.StringFixed(4),
				})
			}
		}
	}
}

// closePeriod records closing balances and advances every partner's clock.
func (r *run) closePeriod(cf domain.CashFlowEvent) {
	for _, ps := range r.partners {
		for idx, acct := range ps.accounts {
			row := r.rows[ps.index][idx]
			row.ClosingBalance = acct.balance
			r.result.PeriodAccruals = append(r.result.PeriodAccruals, row)
		}
		ps.lastAccrual = cf.Date
	}
}
