package waterfall

import (
	"fmt"
	"sort"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
)

// tierRole is the part a tier plays in the cascade.
type tierRole int

const (
	rolePreferred tierRole = iota
	rolePromote
	roleResidual
)

// resolvedTier is a Tier with every default applied.
type resolvedTier struct {
	number   int
	role     tierRole
	kind     domain.HurdleKind
	rate     float64         // IRR hurdle; tier 1: the default preferred rate
	multiple decimal.Decimal // equity-multiple hurdle
	lpSplit  decimal.Decimal
	gpSplit  decimal.Decimal
	promote  decimal.Decimal // zero when not stated
}

// accountScale is the contribution multiplier for this tier's owed accounts.
func (t resolvedTier) accountScale() decimal.Decimal {
	if t.role == rolePromote && t.kind == domain.HurdleMultiple {
		return t.multiple
	}
	return decimal.NewFromInt(1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validation
// ──────────────────────────────────────────────────────────────────────────────

func validate(cashFlows []domain.CashFlowEvent, tiers []domain.Tier, partners []domain.Partner, settings domain.WaterfallSettings) error {
	for _, cf := range cashFlows {
		if cf.Date.IsZero() {
			return fmt.Errorf("period %d: %w", cf.PeriodID, domain.ErrInvalidCashFlowDate)
		}
	}

	seen := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		if t.Number < 1 {
			return fmt.Errorf("tier %d: %w", t.Number, domain.ErrInvalidTierNumber)
		}
		if seen[t.Number] {
			return fmt.Errorf("tier %d: %w", t.Number, domain.ErrDuplicateTier)
		}
		seen[t.Number] = true
		if !t.HurdleKind.IsValid() {
			return fmt.Errorf("tier %d: %q: %w", t.Number, t.HurdleKind, domain.ErrInvalidHurdleKind)
		}
	}

	for _, p := range partners {
		if !p.Role.IsValid() {
			return fmt.Errorf("partner %q: role %q: %w", p.Name, p.Role, domain.ErrInvalidPartnerRole)
		}
	}

	switch settings.HurdleMethod {
	case "", domain.MethodIRR, domain.MethodMultiple, domain.MethodHybrid:
	default:
		return fmt.Errorf("hurdle method %q: %w", settings.HurdleMethod, domain.ErrInvalidSettings)
	}
	switch settings.ReturnOfCapital {
	case "", domain.PolicyPariPassu, domain.PolicyLPFirst:
	default:
		return fmt.Errorf("return of capital %q: %w", settings.ReturnOfCapital, domain.ErrInvalidSettings)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Normalisation
// ──────────────────────────────────────────────────────────────────────────────

// sortedCashFlows returns a copy ordered by date, then period id.
func sortedCashFlows(in []domain.CashFlowEvent) []domain.CashFlowEvent {
	out := make([]domain.CashFlowEvent, len(in))
	copy(out, in)
	for i := range out {
		out[i].Date = domain.CivilDate(out[i].Date)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].PeriodID < out[j].PeriodID
	})
	return out
}

// sortedTiers returns a copy ordered by tier number, cut to count when set.
func sortedTiers(in []domain.Tier, count int) []domain.Tier {
	out := make([]domain.Tier, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Number < out[j].Number
	})
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}

// resolveTiers applies hurdle and split defaults.
//
// Tier 1 with no rate takes the first LP's stated preferred return, then
// Defaults.PreferredReturn. Promote tiers take the configured default for
// their position. An all-zero split falls back to the LP and GP classes'
// combined ownership; any other split is normalised to sum to 1.
func resolveTiers(tiers []domain.Tier, partners []domain.Partner, shares []decimal.Decimal, method domain.HurdleMethod, d Defaults) []resolvedTier {
	var lpOwnership decimal.Decimal
	for i := range partners {
		if partners[i].IsLP() {
			lpOwnership = lpOwnership.Add(shares[i])
		}
	}
	gpOwnership := decimal.NewFromInt(1).Sub(lpOwnership)

	n := len(tiers)
	out := make([]resolvedTier, n)
	for i, t := range tiers {
		rt := resolvedTier{number: t.Number, kind: domain.HurdleNone}

		switch {
		case i == 0:
			rt.role = rolePreferred
			rt.rate = preferredRate(t, partners, d)
		case i == n-1:
			rt.role = roleResidual
		default:
			rt.role = rolePromote
			rt.kind = t.HurdleKind
			if rt.kind == "" || rt.kind == domain.HurdleNone {
				rt.kind = method.HurdleKind()
			}
			rt.rate = d.promoteRate(i)
			if t.HurdleRate != nil {
				rt.rate = *t.HurdleRate
			}
			rt.multiple = decimal.NewFromFloat(d.multiple(i))
			if t.HurdleMultiple != nil && t.HurdleMultiple.IsPositive() {
				rt.multiple = *t.HurdleMultiple
			}
		}

		if lp, gp, ok := t.NormalizedSplit(); ok {
			rt.lpSplit, rt.gpSplit = lp, gp
		} else {
			rt.lpSplit, rt.gpSplit = lpOwnership, gpOwnership
		}
		if t.PromotePct != nil && t.PromotePct.IsPositive() {
			rt.promote = *t.PromotePct
		}
		out[i] = rt
	}
	return out
}

func preferredRate(t domain.Tier, partners []domain.Partner, d Defaults) float64 {
	if t.HurdleRate != nil && *t.HurdleRate > 0 {
		return *t.HurdleRate
	}
	for i := range partners {
		if partners[i].IsLP() && partners[i].PreferredReturn > 0 {
			return partners[i].PreferredReturn
		}
	}
	return d.PreferredReturn
}

// catchUpTarget is the GP share the catch-up aims for: the promote
// percentage of the first tier after tier 1, else that tier's GP split.
func catchUpTarget(tiers []resolvedTier) decimal.Decimal {
	t := tiers[0]
	if len(tiers) > 1 {
		t = tiers[1]
	}
	if t.promote.IsPositive() {
		return t.promote
	}
	return t.gpSplit
}
