// Package waterfall computes equity waterfall distributions: period by period
// it accrues each partner's owed balances, books capital calls, and cascades
// distributable cash through the preferred-return, promote and residual tiers.
//
// A computation is a single synchronous call. All mutable state belongs to
// that call, inputs are never modified, and identical inputs give identical
// results, so independent calls may run concurrently.
package waterfall

import (
	"fmt"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/evetabi/waterfall/internal/irr"
	"github.com/shopspring/decimal"
)

// Engine runs waterfall computations with a fixed set of options.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// ComputeWaterfall runs the cascade with DefaultOptions. settings may be nil.
func ComputeWaterfall(
	cashFlows []domain.CashFlowEvent,
	tiers []domain.Tier,
	partners []domain.Partner,
	settings *domain.WaterfallSettings,
) (*domain.WaterfallResult, error) {
	return NewEngine(DefaultOptions()).Compute(cashFlows, tiers, partners, settings)
}

// Compute runs the cascade.
//
// An empty cash-flow, tier or partner list yields an empty result and no
// error. Errors are returned only for structurally invalid input (see
// domain.IsInputError); financially degenerate input resolves to defaults.
func (e *Engine) Compute(
	cashFlows []domain.CashFlowEvent,
	tiers []domain.Tier,
	partners []domain.Partner,
	settings *domain.WaterfallSettings,
) (*domain.WaterfallResult, error) {
	if len(cashFlows) == 0 || len(tiers) == 0 || len(partners) == 0 {
		return emptyResult(), nil
	}

	s := domain.DefaultSettings()
	if settings != nil {
		s = *settings
		if s.HurdleMethod == "" {
			s.HurdleMethod = domain.MethodIRR
		}
		if s.ReturnOfCapital == "" {
			s.ReturnOfCapital = domain.PolicyPariPassu
		}
	}

	if err := validate(cashFlows, tiers, partners, s); err != nil {
		return nil, fmt.Errorf("waterfall.Compute: %w", err)
	}

	r := newRun(e.opts, sortedCashFlows(cashFlows), sortedTiers(tiers, s.TierCount), partners, s)
	r.execute()
	return r.result, nil
}

func emptyResult() *domain.WaterfallResult {
	return &domain.WaterfallResult{
		Distributions:  []domain.DistributionResult{},
		PartnerStates:  []domain.PartnerFinalState{},
		PeriodAccruals: []domain.PeriodAccrual{},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// run — state of one invocation
// ──────────────────────────────────────────────────────────────────────────────

type run struct {
	opts     Options
	settings domain.WaterfallSettings
	flows    []domain.CashFlowEvent
	tiers    []resolvedTier

	partners []*partnerState // input order
	lps      []*partnerState
	gps      []*partnerState

	catchUpTarget decimal.Decimal
	rows          [][]domain.PeriodAccrual // [partner][tier], current period
	result        *domain.WaterfallResult
}

func newRun(opts Options, flows []domain.CashFlowEvent, tiers []domain.Tier, partners []domain.Partner, s domain.WaterfallSettings) *run {
	shares := domain.DeriveOwnershipShares(partners)
	resolved := resolveTiers(tiers, partners, shares, s.HurdleMethod, opts.Defaults)

	r := &run{
		opts:          opts,
		settings:      s,
		flows:         flows,
		tiers:         resolved,
		catchUpTarget: catchUpTarget(resolved),
		result:        emptyResult(),
	}

	start := r.openingDate()
	for i, p := range partners {
		ps := &partnerState{
			partner:     p,
			index:       i,
			share:       shares[i],
			prefRate:    p.PreferredReturn,
			accounts:    make([]*account, len(resolved)),
			lastAccrual: start,
		}
		if ps.prefRate <= 0 {
			ps.prefRate = resolved[0].rate
		}
		for idx, t := range resolved {
			ps.accounts[idx] = newAccount(accountRate(t, ps), t.accountScale(), start)
		}

		r.partners = append(r.partners, ps)
		if ps.isLP() {
			r.lps = append(r.lps, ps)
		} else {
			r.gps = append(r.gps, ps)
		}
	}

	r.rows = make([][]domain.PeriodAccrual, len(partners))
	for i := range r.rows {
		r.rows[i] = make([]domain.PeriodAccrual, len(resolved))
	}
	return r
}

// accountRate is the compounding rate of partner ps's account at tier t.
// Tier 1 grows at the partner's own preferred return; IRR-based promote tiers
// grow at the hurdle rate for LPs only; nothing else accrues.
func accountRate(t resolvedTier, ps *partnerState) float64 {
	switch t.role {
	case rolePreferred:
		return ps.prefRate
	case rolePromote:
		if ps.isLP() && t.kind.UsesIRR() {
			return t.rate
		}
	}
	return 0
}

// openingDate dates the opening balances: StartDate when set, otherwise the
// first cash flow.
func (r *run) openingDate() time.Time {
	if r.settings.StartDate != nil && !r.settings.StartDate.IsZero() {
		return domain.CivilDate(*r.settings.StartDate)
	}
	return r.flows[0].Date
}

// contributionsInFlows reports whether capital arrives as negative cash flows.
func (r *run) contributionsInFlows() bool {
	for i := range r.flows {
		if r.flows[i].IsContribution() {
			return true
		}
	}
	return false
}

func (r *run) execute() {
	if !r.contributionsInFlows() {
		r.openBalances()
	}

	for _, cf := range r.flows {
		r.accrue(cf)
		switch {
		case cf.IsContribution():
			r.contribute(cf)
		case cf.IsDistribution():
			r.distribute(cf)
		default:
			r.trace(TraceZeroFlow, "no cash this period", map[string]any{
				"period": cf.PeriodID,
				"date":   cf.Date.Format("2006-01-02"),
			})
		}
		r.closePeriod(cf)
	}

	r.summarise()
}

// openBalances seeds every account with the partner's stated capital when
// the schedule carries no capital calls.
func (r *run) openBalances() {
	start := r.openingDate()
	opening := domain.CashFlowEvent{PeriodID: 0, Date: start}
	for _, ps := range r.partners {
		if !ps.partner.CapitalContributed.IsPositive() {
			continue
		}
		ps.contribute(ps.partner.CapitalContributed, start)
		r.record(opening, ps, domain.ContributionTier, domain.KindContribution, ps.partner.CapitalContributed.Neg())
	}
}

// contribute splits a capital call across partners by ownership share.
func (r *run) contribute(cf domain.CashFlowEvent) {
	total := cf.Amount.Abs()
	weights := make([]decimal.Decimal, len(r.partners))
	for i, ps := range r.partners {
		weights[i] = ps.share
	}
	for i, part := range splitByWeight(total, weights) {
		if !part.IsPositive() {
			continue
		}
		ps := r.partners[i]
		ps.contribute(part, cf.Date)
		r.record(cf, ps, domain.ContributionTier, domain.KindContribution, part.Neg())
	}
	r.trace(TraceContribution, "capital called", map[string]any{
		"period": cf.PeriodID,
		"amount": total.StringFixed(4),
	})
}

// distribute cascades a period's cash through every tier.
func (r *run) distribute(cf domain.CashFlowEvent) {
	cash := cf.Amount
	cash = r.allocatePreferred(cf, cash)
	cash = r.allocateCatchUp(cf, cash)
	for idx := 1; idx < len(r.tiers)-1; idx++ {
		cash = r.allocatePromote(cf, idx, cash)
	}
	cash = r.allocateResidual(cf, cash)

	if r.verbose(cf.PeriodID) {
		for _, ps := range r.partners {
			balances := make([]string, len(ps.accounts))
			for idx, acct := range ps.accounts {
				balances[idx] = acct.balance.StringFixed(4)
			}
			r.trace(TraceSummary, "partner balances after allocation", map[string]any{
				"period":      cf.PeriodID,
				"partner":     ps.partner.Name,
				"distributed": ps.distributed.StringFixed(4),
				"balances":    balances,
			})
		}
	}
	if cash.IsPositive() {
		r.trace(TraceSummary, "cash left undistributed", map[string]any{
			"period": cf.PeriodID,
			"cash":   cash.StringFixed(4),
		})
	}
}

// payAll books amounts[i] to partner i at tier position idx, in partner order,
// and returns the total paid.
func (r *run) payAll(cf domain.CashFlowEvent, idx int, amounts []decimal.Decimal, kind domain.DistributionKind) decimal.Decimal {
	var paid decimal.Decimal
	for i, amt := range amounts {
		if !amt.IsPositive() {
			continue
		}
		ps := r.partners[i]
		ps.receive(idx, amt, kind, cf.Date)
		r.record(cf, ps, r.tiers[idx].number, kind, amt)
		paid = paid.Add(amt)
	}
	return paid
}

func (r *run) record(cf domain.CashFlowEvent, ps *partnerState, tier int, kind domain.DistributionKind, amount decimal.Decimal) {
	r.result.Distributions = append(r.result.Distributions, domain.DistributionResult{
		PeriodID:              cf.PeriodID,
		Date:                  cf.Date,
		PartnerID:             ps.partner.ID,
		PartnerName:           ps.partner.Name,
		Role:                  ps.partner.Role,
		Tier:                  tier,
		Kind:                  kind,
		Amount:                amount,
		CumulativeDistributed: ps.distributed,
		IRR:                   irr.Solve(ps.flows(), r.opts.Solver),
	})
}

// summarise builds the per-partner final states.
func (r *run) summarise() {
	for _, ps := range r.partners {
		state := domain.PartnerFinalState{
			PartnerID:        ps.partner.ID,
			Name:             ps.partner.Name,
			Role:             ps.partner.Role,
			OwnershipShare:   ps.share,
			TotalContributed: ps.contributed,
			TotalDistributed: ps.distributed,
			IRR:              irr.Solve(ps.flowsToLastDistribution(), r.opts.Solver),
			EquityMultiple:   domain.EquityMultiple(ps.distributed, ps.contributed),
		}
		r.result.PartnerStates = append(r.result.PartnerStates, state)
		r.trace(TraceSummary, "partner final state", map[string]any{
			"partner":     state.Name,
			"contributed": state.TotalContributed.StringFixed(4),
			"distributed": state.TotalDistributed.StringFixed(4),
			"irr":         state.IRR,
			"multiple":    state.EquityMultiple.StringFixed(4),
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Diagnostics
// ──────────────────────────────────────────────────────────────────────────────

func (r *run) trace(category, msg string, payload map[string]any) {
	tc := r.opts.Trace
	if !tc.Enabled() {
		return
	}
	now := time.Now
	if tc.Now != nil {
		now = tc.Now
	}
	tc.Sink.Trace(TraceRecord{
		Time:     now(),
		Category: category,
		Message:  msg,
		Payload:  payload,
	})
}

func (r *run) verbose(periodID int) bool {
	tc := r.opts.Trace
	return tc.Enabled() && tc.VerbosePeriod != nil && tc.VerbosePeriod(periodID)
}
