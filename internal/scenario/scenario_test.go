package scenario_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/evetabi/waterfall/internal/scenario"
	"github.com/evetabi/waterfall/internal/waterfall"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeTierDeal = `
name: Harbor Point
settings:
  hurdle_method: IRR
  return_of_capital: pari_passu
  gp_catch_up: false
partners:
  - name: Harbor LP
    role: lp
    ownership_pct: 0.9
    capital: 900
    preferred_return: 0.08
  - name: Harbor GP
    role: GP
    ownership_pct: 0.1
    capital: 100
tiers:
  - tier: 1
    lp_split: 0.9
    gp_split: 0.1
  - tier: 2
    hurdle_kind: irr
    hurdle_rate: 0.12
    lp_split: 0.8
    gp_split: 0.2
    promote_pct: 0.2
  - tier: 3
    lp_split: 0.7
    gp_split: 0.3
cash_flows:
  - period: 1
    date: 2023-01-01
    amount: -1000
  - period: 2
    date: "12/31/2023"
    amount: "1200.50"
`

func TestParse_ThreeTierDeal(t *testing.T) {
	sc, err := scenario.Parse([]byte(threeTierDeal))
	require.NoError(t, err)

	assert.Equal(t, "Harbor Point", sc.Name)
	assert.Equal(t, domain.MethodIRR, sc.Settings.HurdleMethod)
	assert.Equal(t, domain.PolicyPariPassu, sc.Settings.ReturnOfCapital)

	require.Len(t, sc.Partners, 2)
	lp := sc.Partners[0]
	assert.Equal(t, domain.RoleLP, lp.Role)
	assert.True(t, lp.OwnershipPct.Equal(decimal.RequireFromString("0.9")))
	assert.True(t, lp.CapitalContributed.Equal(decimal.NewFromInt(900)))
	assert.InDelta(t, 0.08, lp.PreferredReturn, 1e-12)
	assert.Equal(t, domain.RoleGP, sc.Partners[1].Role)
	assert.NotEqual(t, lp.ID, sc.Partners[1].ID)

	require.Len(t, sc.Tiers, 3)
	t2 := sc.Tiers[1]
	assert.Equal(t, domain.HurdleIRR, t2.HurdleKind)
	require.NotNil(t, t2.HurdleRate)
	assert.InDelta(t, 0.12, *t2.HurdleRate, 1e-12)
	require.NotNil(t, t2.PromotePct)
	assert.True(t, t2.PromotePct.Equal(decimal.RequireFromString("0.2")))
	assert.Nil(t, sc.Tiers[0].HurdleRate)

	require.Len(t, sc.CashFlows, 2)
	assert.True(t, sc.CashFlows[0].Amount.Equal(decimal.NewFromInt(-1000)))
	assert.Equal(t, "2023-12-31", sc.CashFlows[1].Date.Format("2006-01-02"))
	assert.True(t, sc.CashFlows[1].Amount.Equal(decimal.RequireFromString("1200.50")))
}

func TestParse_IDsAreDeterministic(t *testing.T) {
	a, err := scenario.Parse([]byte(threeTierDeal))
	require.NoError(t, err)
	b, err := scenario.Parse([]byte(threeTierDeal))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	for i := range a.Partners {
		assert.Equal(t, a.Partners[i].ID, b.Partners[i].ID)
	}
}

func TestParse_AcceptsJSON(t *testing.T) {
	doc := `{
  "name": "json deal",
  "partners": [{"name": "A", "role": "LP", "capital": 500}],
  "tiers": [{"tier": 1, "lp_split": 1}],
  "cash_flows": [{"date": "2024-06-30", "amount": 550}]
}`
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, sc.CashFlows, 1)
	assert.Equal(t, 1, sc.CashFlows[0].PeriodID, "missing period ids are numbered from 1")
}

func TestParse_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "unparseable date",
			doc:  "cash_flows:\n  - date: not-a-date\n    amount: 10\n",
			want: domain.ErrInvalidCashFlowDate,
		},
		{
			name: "missing date",
			doc:  "cash_flows:\n  - amount: 10\n",
			want: domain.ErrInvalidCashFlowDate,
		},
		{
			name: "nan amount",
			doc:  "cash_flows:\n  - date: 2024-01-01\n    amount: .nan\n",
			want: domain.ErrNonFiniteAmount,
		},
		{
			name: "infinite amount",
			doc:  "cash_flows:\n  - date: 2024-01-01\n    amount: -.inf\n",
			want: domain.ErrNonFiniteAmount,
		},
		{
			name: "unparseable amount",
			doc:  "cash_flows:\n  - date: 2024-01-01\n    amount: 1,200\n",
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unparseable hurdle rate",
			doc:  "tiers:\n  - tier: 2\n    hurdle_rate: twelve\n",
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unparseable ownership",
			doc:  "partners:\n  - name: X\n    role: LP\n    ownership_pct: 90%\n",
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unknown role",
			doc:  "partners:\n  - name: X\n    role: sponsor\n",
			want: domain.ErrInvalidPartnerRole,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.True(t, domain.IsInputError(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := scenario.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(threeTierDeal), 0o600))

	sc, err := scenario.Load(path)
	require.NoError(t, err)
	assert.Len(t, sc.Partners, 2)
}

// TestLoad_SampleDealRunsEndToEnd loads the checked-in sample and runs it.
//
//	period 2, 1200 available, one year at 8 %:
//	  tier 1   LP 900 → 972, GP 100 → 108       (1080)
//	  tier 2   remaining 120 at 70/30            LP 84, GP 36
func TestLoad_SampleDealRunsEndToEnd(t *testing.T) {
	deal, err := scenario.Load(filepath.Join("testdata", "two_tier.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "6f1c2b8e-4a53-4f0e-9d6a-2f8b7c1e5a90", deal.ID.String())

	res, err := waterfall.ComputeWaterfall(deal.CashFlows, deal.Tiers, deal.Partners, &deal.Settings)
	require.NoError(t, err)

	assert.InDelta(t, 1200.0, res.PeriodTotal(2).InexactFloat64(), 1e-6)

	lp := res.StateFor(deal.Partners[0].ID)
	gp := res.StateFor(deal.Partners[1].ID)
	require.NotNil(t, lp)
	require.NotNil(t, gp)
	assert.InDelta(t, 1056.0, lp.TotalDistributed.InexactFloat64(), 1e-6)
	assert.InDelta(t, 144.0, gp.TotalDistributed.InexactFloat64(), 1e-6)
	assert.InDelta(t, 0.1733, lp.IRR, 1e-3)
}
