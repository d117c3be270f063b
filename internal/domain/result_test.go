package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestEquityMultiple(t *testing.T) {
	d := decimal.RequireFromString
	if got := domain.EquityMultiple(d("1080"), d("900")); !got.Equal(d("1.2")) {
		t.Errorf("EquityMultiple = %s, want 1.2", got)
	}
	if got := domain.EquityMultiple(d("50"), decimal.Zero); !got.IsZero() {
		t.Errorf("EquityMultiple with no capital = %s, want 0", got)
	}
}

func TestWaterfallResult_Queries(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	d := decimal.RequireFromString

	res := &domain.WaterfallResult{
		Distributions: []domain.DistributionResult{
			{PeriodID: 1, PartnerID: a, Tier: domain.ContributionTier, Kind: domain.KindContribution, Amount: d("-900")},
			{PeriodID: 2, PartnerID: a, Tier: 1, Kind: domain.KindPreferred, Amount: d("972")},
			{PeriodID: 2, PartnerID: b, Tier: 1, Kind: domain.KindPreferred, Amount: d("108")},
			{PeriodID: 2, PartnerID: b, Tier: 2, Kind: domain.KindResidual, Amount: d("20")},
		},
		PartnerStates: []domain.PartnerFinalState{
			{PartnerID: a, TotalContributed: d("900"), TotalDistributed: d("972")},
		},
	}

	if res.IsEmpty() {
		t.Error("result should not be empty")
	}
	if got := res.PeriodTotal(2); !got.Equal(d("1100")) {
		t.Errorf("PeriodTotal(2) = %s, want 1100", got)
	}
	if got := res.PeriodTotal(1); !got.IsZero() {
		t.Errorf("PeriodTotal(1) = %s, contributions must not count", got)
	}
	st := res.StateFor(a)
	if st == nil || !st.Profit().Equal(d("72")) {
		t.Errorf("StateFor(a) = %+v, want profit 72", st)
	}
	if res.StateFor(b) != nil {
		t.Error("StateFor(b) should be nil")
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("waterfall.Compute: tier 2: %w", domain.ErrDuplicateTier)
	if !domain.IsInputError(wrapped) {
		t.Error("wrapped input error not recognised")
	}
	if !domain.IsInputError(fmt.Errorf("cash_flows[0]: %w", domain.ErrInvalidAmount)) {
		t.Error("unparseable number should be an input error")
	}
	if domain.IsInputError(domain.ErrDealNotFound) {
		t.Error("not-found is not an input error")
	}
	if !domain.IsNotFound(fmt.Errorf("load: %w", domain.ErrScenarioNotFound)) {
		t.Error("wrapped not-found not recognised")
	}
	if domain.IsNotFound(errors.New("boom")) {
		t.Error("arbitrary error is not not-found")
	}
}

func TestDeal(t *testing.T) {
	deal := domain.Deal{
		Partners: []domain.Partner{{Role: domain.RoleLP}, {Role: domain.RoleLP}, {Role: domain.RoleGP}},
	}
	if !deal.IsEmpty() {
		t.Error("deal without tiers or cash flows is empty")
	}
	if got := deal.LPCount(); got != 2 {
		t.Errorf("LPCount = %d, want 2", got)
	}
}
