package waterfall

import (
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/evetabi/waterfall/internal/irr"
	"github.com/shopspring/decimal"
)

// ledgerEntry is one dated cash movement in a partner's history, signed from
// the partner's point of view.
type ledgerEntry struct {
	date   time.Time
	amount decimal.Decimal
}

// partnerState is the mutable per-run state of one partner. It is created by
// newRun and never escapes the invocation.
type partnerState struct {
	partner  domain.Partner
	index    int
	share    decimal.Decimal
	prefRate float64
	accounts []*account // tier-indexed, aligned with run.tiers

	unreturned  decimal.Decimal // capital not yet returned through tier 1
	contributed decimal.Decimal
	distributed decimal.Decimal
	prefProfit  decimal.Decimal // tier-1 cash beyond returned capital
	catchUp     decimal.Decimal

	history     []ledgerEntry
	paidThrough int // len(history) as of the last distribution
	lastAccrual time.Time
}

func (ps *partnerState) isLP() bool {
	return ps.partner.IsLP()
}

// owed returns the balance still owed at tier position idx.
func (ps *partnerState) owed(idx int) decimal.Decimal {
	return ps.accounts[idx].balance
}

// contribute books a capital contribution against every tier account.
func (ps *partnerState) contribute(amount decimal.Decimal, date time.Time) {
	ps.unreturned = ps.unreturned.Add(amount)
	ps.contributed = ps.contributed.Add(amount)
	for _, acct := range ps.accounts {
		acct.credit(amount, date)
	}
	ps.history = append(ps.history, ledgerEntry{date: date, amount: amount.Neg()})
}

// receive books a payment at tier position idx and nets it down from that tier
// and every later one.
func (ps *partnerState) receive(idx int, amount decimal.Decimal, kind domain.DistributionKind, date time.Time) {
	for j := idx; j < len(ps.accounts); j++ {
		ps.accounts[j].debit(amount, date)
	}
	ps.distributed = ps.distributed.Add(amount)
	ps.history = append(ps.history, ledgerEntry{date: date, amount: amount})
	ps.paidThrough = len(ps.history)

	switch kind {
	case domain.KindCatchUp:
		ps.catchUp = ps.catchUp.Add(amount)
	case domain.KindPreferred:
		roc := decimal.Min(amount, ps.unreturned)
		ps.unreturned = ps.unreturned.Sub(roc)
		ps.prefProfit = ps.prefProfit.Add(amount.Sub(roc))
	}
}

// flows converts the history for the root solver.
func (ps *partnerState) flows() []irr.Flow {
	return appendFlows(nil, ps.history)
}

// flowsToLastDistribution is flows cut after the last distribution received.
func (ps *partnerState) flowsToLastDistribution() []irr.Flow {
	return appendFlows(nil, ps.history[:ps.paidThrough])
}

func appendFlows(dst []irr.Flow, history []ledgerEntry) []irr.Flow {
	for _, e := range history {
		dst = append(dst, irr.Flow{Date: e.date, Amount: e.amount.InexactFloat64()})
	}
	return dst
}

// ──────────────────────────────────────────────────────────────────────────────
// LP class views used by the hurdle tests
// ──────────────────────────────────────────────────────────────────────────────

// lpFlows merges the history of every LP, in partner order.
func (r *run) lpFlows() []irr.Flow {
	var out []irr.Flow
	for _, ps := range r.lps {
		out = appendFlows(out, ps.history)
	}
	return out
}

// lpIRR is the LP class IRR over its full history to date.
func (r *run) lpIRR() float64 {
	return irr.Solve(r.lpFlows(), r.opts.Solver)
}

// lpMultiple is the LP class equity multiple to date.
func (r *run) lpMultiple() decimal.Decimal {
	var contributed, distributed decimal.Decimal
	for _, ps := range r.lps {
		contributed = contributed.Add(ps.contributed)
		distributed = distributed.Add(ps.distributed)
	}
	return domain.EquityMultiple(distributed, contributed)
}
