package waterfall

import (
	"github.com/shopspring/decimal"
)

// moneyPlaces is the precision pro-rata shares are floored to. The last
// recipient takes the remainder, so shares always add up to the amount split.
const moneyPlaces = 10

// allocateCapped spreads cash over recipients in proportion to weights without
// giving anyone more than their cap. Capacity left by recipients that hit
// their cap is offered to the others in further rounds, until the cash or the
// capacity is exhausted. The sum of the result never exceeds cash.
func allocateCapped(cash decimal.Decimal, weights, caps []decimal.Decimal) []decimal.Decimal {
	n := len(weights)
	alloc := make([]decimal.Decimal, n)
	remaining := cash

	for round := 0; round <= n && remaining.IsPositive(); round++ {
		var active []int
		var total decimal.Decimal
		for i := 0; i < n; i++ {
			if weights[i].IsPositive() && caps[i].Sub(alloc[i]).IsPositive() {
				active = append(active, i)
				total = total.Add(weights[i])
			}
		}
		if len(active) == 0 {
			break
		}

		pool := remaining
		for k, i := range active {
			share := remaining
			if k < len(active)-1 {
				share = pool.Mul(weights[i]).Div(total).RoundDown(moneyPlaces)
			}
			share = decimal.Min(share, caps[i].Sub(alloc[i]), remaining)
			alloc[i] = alloc[i].Add(share)
			remaining = remaining.Sub(share)
		}
	}
	return alloc
}

// splitByWeight divides amount in proportion to weights with no caps. Falls
// back to an equal split when no weight is positive.
func splitByWeight(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	n := len(weights)
	out := make([]decimal.Decimal, n)
	if n == 0 || !amount.IsPositive() {
		return out
	}

	w := weights
	var total decimal.Decimal
	for _, x := range w {
		if x.IsPositive() {
			total = total.Add(x)
		}
	}
	if !total.IsPositive() {
		w = make([]decimal.Decimal, n)
		for i := range w {
			w[i] = decimal.NewFromInt(1)
		}
		total = decimal.NewFromInt(int64(n))
	}

	last := -1
	for i := range w {
		if w[i].IsPositive() {
			last = i
		}
	}

	remaining := amount
	for i := range w {
		if !w[i].IsPositive() {
			continue
		}
		if i == last {
			out[i] = remaining
			break
		}
		out[i] = amount.Mul(w[i]).Div(total).RoundDown(moneyPlaces)
		remaining = remaining.Sub(out[i])
	}
	return out
}

func sum(xs []decimal.Decimal) decimal.Decimal {
	var total decimal.Decimal
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}
