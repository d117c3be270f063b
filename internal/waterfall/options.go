package waterfall

import (
	"github.com/evetabi/waterfall/internal/config"
	"github.com/evetabi/waterfall/internal/irr"
)

// Defaults are the conventions applied when a tier or partner omits a rate.
type Defaults struct {
	// PreferredReturn is used for tier 1 when neither the tier nor any LP
	// states a rate.
	PreferredReturn float64
	// PromoteHurdleRates[i] is the IRR hurdle for tier i+2; tiers beyond the
	// list reuse the last entry.
	PromoteHurdleRates []float64
	// HurdleMultiples[i] is the equity-multiple hurdle for tier i+2, same rule.
	HurdleMultiples []float64
}

// DefaultDefaults returns 8 % pref, 12/15/18/20 % IRR hurdles and
// 1.5/1.75/2.0x multiples.
func DefaultDefaults() Defaults {
	return Defaults{
		PreferredReturn:    0.08,
		PromoteHurdleRates: []float64{0.12, 0.15, 0.18, 0.20},
		HurdleMultiples:    []float64{1.5, 1.75, 2.0},
	}
}

// promoteRate returns the default IRR hurdle for the promote tier at
// position pos (1 = tier 2).
func (d Defaults) promoteRate(pos int) float64 {
	return pick(d.PromoteHurdleRates, pos-1, 0.12)
}

// multiple returns the default equity-multiple hurdle for position pos.
func (d Defaults) multiple(pos int) float64 {
	return pick(d.HurdleMultiples, pos-1, 1.5)
}

func pick(list []float64, i int, fallback float64) float64 {
	if len(list) == 0 {
		return fallback
	}
	if i < 0 {
		i = 0
	}
	if i >= len(list) {
		i = len(list) - 1
	}
	return list[i]
}

// Options configures an Engine.
type Options struct {
	Defaults Defaults
	Solver   irr.Options
	Trace    TraceConfig
}

// DefaultOptions returns the built-in defaults with tracing disabled.
func DefaultOptions() Options {
	return Options{
		Defaults: DefaultDefaults(),
		Solver:   irr.DefaultOptions(),
	}
}

// NewOptions builds engine options from application configuration. The trace
// sink is left for the caller to attach.
func NewOptions(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	e := cfg.Engine
	if e.DefaultPreferredReturn > 0 {
		opts.Defaults.PreferredReturn = e.DefaultPreferredReturn
	}
	if len(e.PromoteHurdleRates) > 0 {
		opts.Defaults.PromoteHurdleRates = append([]float64(nil), e.PromoteHurdleRates...)
	}
	if len(e.HurdleMultiples) > 0 {
		opts.Defaults.HurdleMultiples = append([]float64(nil), e.HurdleMultiples...)
	}
	opts.Solver = irr.Options{
		Guess:         cfg.Solver.Guess,
		MaxIterations: cfg.Solver.MaxIterations,
		Tolerance:     cfg.Solver.Tolerance,
	}
	if len(cfg.Trace.VerbosePeriods) > 0 {
		opts.Trace.VerbosePeriod = PeriodSet(cfg.Trace.VerbosePeriods...)
	}
	return opts
}
