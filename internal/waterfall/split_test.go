package waterfall

import (
	"testing"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func mustDay(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func decs(xs ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(xs))
	for i, x := range xs {
		out[i] = decimal.RequireFromString(x)
	}
	return out
}

func assertDecs(t *testing.T, want []string, got []decimal.Decimal) {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return
	}
	for i := range want {
		assert.True(t, decimal.RequireFromString(want[i]).Equal(got[i]), "[%d] got %s, want %s", i, got[i], want[i])
	}
}

func TestAllocateCapped(t *testing.T) {
	tests := []struct {
		name    string
		cash    string
		weights []string
		caps    []string
		want    []string
	}{
		{"proportional under caps", "500", []string{"972", "108"}, []string{"972", "108"}, []string{"450", "50"}},
		{"everyone capped", "1200", []string{"972", "108"}, []string{"972", "108"}, []string{"972", "108"}},
		{"freed capacity redirected", "100", []string{"1", "1"}, []string{"10", "1000"}, []string{"10", "90"}},
		{"zero weight skipped", "100", []string{"0", "1"}, []string{"50", "50"}, []string{"0", "50"}},
		{"no cash", "0", []string{"1", "1"}, []string{"5", "5"}, []string{"0", "0"}},
		{"thirds", "100", []string{"1", "1", "1"}, []string{"100", "100", "100"},
			[]string{"33.3333333333", "33.3333333333", "33.3333333334"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allocateCapped(decimal.RequireFromString(tt.cash), decs(tt.weights...), decs(tt.caps...))
			assertDecs(t, tt.want, got)
			assert.False(t, sum(got).GreaterThan(decimal.RequireFromString(tt.cash)))
		})
	}
}

func TestSplitByWeight(t *testing.T) {
	assertDecs(t, []string{"540", "60"}, splitByWeight(decimal.NewFromInt(600), decs("0.9", "0.1")))
	assertDecs(t, []string{"50", "50"}, splitByWeight(decimal.NewFromInt(100), decs("0", "0")))
	assertDecs(t, []string{"100", "0"}, splitByWeight(decimal.NewFromInt(100), decs("1", "0")))

	third := splitByWeight(decimal.NewFromInt(10), decs("1", "1", "1"))
	assert.True(t, sum(third).Equal(decimal.NewFromInt(10)))
}

func TestAccount_AnchoredCompounding(t *testing.T) {
	start := mustDay("2023-01-01")
	a := newAccount(0.08, decimal.NewFromInt(1), start)
	a.credit(decimal.NewFromInt(1000), start)

	a.accrueTo(mustDay("2023-07-01"))
	mid := a.balance
	a.accrueTo(mustDay("2024-01-01"))

	b := newAccount(0.08, decimal.NewFromInt(1), start)
	b.credit(decimal.NewFromInt(1000), start)
	b.accrueTo(mustDay("2024-01-01"))

	assert.True(t, mid.LessThan(a.balance))
	assert.True(t, a.balance.Equal(b.balance), "%s != %s", a.balance, b.balance)
	assert.True(t, a.accrued.Equal(decimal.NewFromInt(80)), "accrued %s", a.accrued)
}

func TestAccount_DebitClampsAtZero(t *testing.T) {
	start := mustDay("2023-01-01")
	a := newAccount(0, decimal.NewFromInt(1), start)
	a.credit(decimal.NewFromInt(100), start)
	a.debit(decimal.NewFromInt(250), start)
	assert.True(t, a.balance.IsZero())
}

func TestAccount_RejectsDegenerateRate(t *testing.T) {
	start := mustDay("2023-01-01")
	a := newAccount(-1.5, decimal.NewFromInt(1), start)
	a.credit(decimal.NewFromInt(100), start)
	assert.True(t, a.accrueTo(mustDay("2024-01-01")).IsZero())
	assert.True(t, a.balance.Equal(decimal.NewFromInt(100)))
}
