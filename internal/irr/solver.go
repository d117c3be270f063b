// Package irr solves the internal rate of return of dated, irregular cash
// flows (XIRR, actual/365).
package irr

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"gonum.org/v1/gonum/floats"
)

const (
	// rateFloor is the lowest rate either method will try (-99 %).
	rateFloor = -0.99
	// bracketHigh is the initial upper bound of the bisection interval.
	bracketHigh = 5.0
	// bracketStep and bracketExpansions widen the interval when unbracketed.
	bracketStep       = 5.0
	bracketExpansions = 10
	// minDerivative below which Newton's step is abandoned.
	minDerivative = 1e-12
	// bisectMaxIterations bounds the fallback independently of Options.
	bisectMaxIterations = 200
)

// Flow is one dated cash movement. Outflows are negative.
type Flow struct {
	Date   time.Time
	Amount float64
}

// Options tunes the solver.
type Options struct {
	Guess         float64 // Newton starting rate
	MaxIterations int     // Newton iteration cap
	Tolerance     float64 // |NPV| and step convergence threshold
}

// DefaultOptions returns guess 10 %, 100 iterations, 1e-7 tolerance.
func DefaultOptions() Options {
	return Options{
		Guess:         0.1,
		MaxIterations: 100,
		Tolerance:     1e-7,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if math.IsNaN(o.Guess) || math.IsInf(o.Guess, 0) || o.Guess <= rateFloor {
		o.Guess = d.Guess
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if !(o.Tolerance > 0) || math.IsInf(o.Tolerance, 0) {
		o.Tolerance = d.Tolerance
	}
	return o
}

// Solve returns the annualised rate r that zeroes Σ amount/(1+r)^years.
//
// It returns 0 when the rate is undefined: fewer than two flows, no sign
// change, a non-finite amount, or no root found by either Newton-Raphson or
// the bracketed bisection fallback. The result is always finite and depends
// only on the input.
func Solve(flows []Flow, opts Options) float64 {
	r, err := SolveChecked(flows, opts)
	if err != nil {
		return 0
	}
	return r
}

// SolveChecked is Solve for callers holding raw floats: it rejects NaN or
// infinite amounts with domain.ErrNonFiniteAmount instead of returning 0.
// An undefined rate is still 0 with a nil error.
func SolveChecked(flows []Flow, opts Options) (float64, error) {
	for _, f := range flows {
		if !isFinite(f.Amount) {
			return 0, fmt.Errorf("irr.SolveChecked: %w", domain.ErrNonFiniteAmount)
		}
	}
	return solve(flows, opts), nil
}

func solve(flows []Flow, opts Options) float64 {
	if len(flows) < 2 {
		return 0
	}
	opts = opts.withDefaults()

	sorted := make([]Flow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var hasPos, hasNeg bool
	for _, f := range sorted {
		if f.Amount > 0 {
			hasPos = true
		} else if f.Amount < 0 {
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		return 0
	}

	s := newSchedule(sorted)

	if r, ok := s.newton(opts); ok {
		return r
	}
	if r, ok := s.bisect(opts.Tolerance); ok {
		return r
	}
	return 0
}

// ──────────────────────────────────────────────────────────────────────────────
// schedule — the flows as parallel vectors
// ──────────────────────────────────────────────────────────────────────────────

type schedule struct {
	amounts []float64
	years   []float64
	disc    []float64 // scratch: discount factors
	deriv   []float64 // scratch: derivative weights
}

func newSchedule(sorted []Flow) *schedule {
	n := len(sorted)
	s := &schedule{
		amounts: make([]float64, n),
		years:   make([]float64, n),
		disc:    make([]float64, n),
		deriv:   make([]float64, n),
	}
	t0 := sorted[0].Date
	for i, f := range sorted {
		s.amounts[i] = f.Amount
		s.years[i] = domain.YearFraction(t0, f.Date)
	}
	return s
}

// npv returns the present value at rate r.
func (s *schedule) npv(r float64) float64 {
	base := 1 + r
	for i, t := range s.years {
		s.disc[i] = math.Pow(base, -t)
	}
	return floats.Dot(s.amounts, s.disc)
}

// npvWithDerivative returns the present value and its derivative in r.
func (s *schedule) npvWithDerivative(r float64) (float64, float64) {
	base := 1 + r
	for i, t := range s.years {
		s.disc[i] = math.Pow(base, -t)
		s.deriv[i] = -t * s.disc[i] / base
	}
	return floats.Dot(s.amounts, s.disc), floats.Dot(s.amounts, s.deriv)
}

func (s *schedule) newton(opts Options) (float64, bool) {
	r := opts.Guess
	for i := 0; i < opts.MaxIterations; i++ {
		f, df := s.npvWithDerivative(r)
		if !isFinite(f) || !isFinite(df) {
			return 0, false
		}
		if math.Abs(f) < opts.Tolerance {
			return r, true
		}
		if math.Abs(df) < minDerivative {
			return 0, false
		}
		next := r - f/df
		if !isFinite(next) || next <= rateFloor {
			return 0, false
		}
		if math.Abs(next-r) < opts.Tolerance {
			return next, true
		}
		r = next
	}
	return 0, false
}

func (s *schedule) bisect(tol float64) (float64, bool) {
	lo, hi := rateFloor, bracketHigh
	fLo, fHi := s.npv(lo), s.npv(hi)

	for k := 0; sameSign(fLo, fHi) && k < bracketExpansions; k++ {
		hi += bracketStep
		fHi = s.npv(hi)
	}
	if sameSign(fLo, fHi) || !isFinite(fLo) || !isFinite(fHi) {
		return 0, false
	}

	mid := lo
	for i := 0; i < bisectMaxIterations; i++ {
		mid = (lo + hi) / 2
		fMid := s.npv(mid)
		if !isFinite(fMid) {
			return 0, false
		}
		if math.Abs(fMid) < tol || (hi-lo)/2 < tol {
			return mid, true
		}
		if sameSign(fMid, fLo) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return mid, true
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
