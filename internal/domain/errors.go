package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Input-shape errors. These are the only failures the engine reports; financial
// degeneracy (unreachable hurdles, zero ownership, odd splits) resolves to
// defaults instead.
var (
	// ErrInvalidCashFlowDate is returned for a missing or unparseable period date.
	ErrInvalidCashFlowDate = errors.New("invalid cash flow date")

	// ErrNonFiniteAmount is returned when an amount is NaN or infinite.
	ErrNonFiniteAmount = errors.New("cash flow amount is not finite")

	// ErrInvalidAmount is returned for an amount, rate or ratio that does not
	// parse as a number.
	ErrInvalidAmount = errors.New("invalid number")

	// ErrInvalidPartnerRole is returned when a partner is neither LP nor GP.
	ErrInvalidPartnerRole = errors.New("invalid partner role: must be LP or GP")

	// ErrInvalidTierNumber is returned for tier numbers below 1.
	ErrInvalidTierNumber = errors.New("tier number must be positive")

	// ErrDuplicateTier is returned when two tiers share a number.
	ErrDuplicateTier = errors.New("duplicate tier number")

	// ErrInvalidHurdleKind is returned for an unrecognised hurdle kind.
	ErrInvalidHurdleKind = errors.New("invalid hurdle kind")

	// ErrInvalidSettings is returned for an unrecognised hurdle method or
	// capital policy.
	ErrInvalidSettings = errors.New("invalid waterfall settings")
)

// Data-access errors
var (
	// ErrDealNotFound is returned when no deal matches the given id.
	ErrDealNotFound = errors.New("deal not found")

	// ErrScenarioNotFound is returned when a scenario file does not exist.
	ErrScenarioNotFound = errors.New("scenario file not found")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// inputErrors collects every structural input error so that IsInputError
// stays in sync automatically.
var inputErrors = []error{
	ErrInvalidCashFlowDate,
	ErrNonFiniteAmount,
	ErrInvalidAmount,
	ErrInvalidPartnerRole,
	ErrInvalidTierNumber,
	ErrDuplicateTier,
	ErrInvalidHurdleKind,
	ErrInvalidSettings,
}

// IsInputError returns true when err (or any error in its chain) is a
// structural input error the caller must fix.
func IsInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true for the "entity not found" errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDealNotFound) || errors.Is(err, ErrScenarioNotFound)
}
