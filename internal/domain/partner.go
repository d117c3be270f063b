// Package domain defines the core financial entities and types for the
// equity waterfall distribution engine.
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// PartnerRole distinguishes passive capital from the deal sponsor.
type PartnerRole string

const (
	RoleLP PartnerRole = "LP" // limited partner, passive investor
	RoleGP PartnerRole = "GP" // general partner, sponsor; earns the promote
)

// IsValid returns true if the role is a recognised partner class.
func (r PartnerRole) IsValid() bool {
	return r == RoleLP || r == RoleGP
}

// IsLP returns true for limited partners.
func (r PartnerRole) IsLP() bool {
	return r == RoleLP
}

// ──────────────────────────────────────────────────────────────────────────────
// Partner
// ──────────────────────────────────────────────────────────────────────────────

// Partner is an investor in the deal.
//
// OwnershipPct is a fraction (0.9 = 90 %). Zero means "not stated": the engine
// then derives shares pro-rata from CapitalContributed, or splits equally when
// no capital is recorded either.
type Partner struct {
	ID                 uuid.UUID       `json:"id"                  db:"id"`
	Name               string          `json:"name"                db:"name"`
	Role               PartnerRole     `json:"role"                db:"role"`
	OwnershipPct       decimal.Decimal `json:"ownership_pct"       db:"ownership_pct"`
	CapitalContributed decimal.Decimal `json:"capital_contributed" db:"capital_contributed"`
	PreferredReturn    float64         `json:"preferred_return"    db:"preferred_return"` // annual, 0.08 = 8 %
}

// IsLP returns true when the partner is a limited partner.
func (p *Partner) IsLP() bool {
	return p.Role.IsLP()
}

// HasStatedOwnership returns true when an explicit ownership share was given.
func (p *Partner) HasStatedOwnership() bool {
	return p.OwnershipPct.IsPositive()
}

// DeriveOwnershipShares returns one share per partner, in input order, summing
// to exactly 1:
//
//  1. explicit OwnershipPct when every partner states one (normalised),
//  2. otherwise pro-rata on CapitalContributed,
//  3. otherwise an equal split.
//
// The last partner absorbs any rounding remainder. Returns nil for no partners.
func DeriveOwnershipShares(partners []Partner) []decimal.Decimal {
	n := len(partners)
	if n == 0 {
		return nil
	}

	weights := make([]decimal.Decimal, n)
	allStated := true
	for i := range partners {
		if !partners[i].HasStatedOwnership() {
			allStated = false
			break
		}
	}

	var total decimal.Decimal
	switch {
	case allStated:
		for i := range partners {
			weights[i] = partners[i].OwnershipPct
			total = total.Add(weights[i])
		}
	default:
		for i := range partners {
			if partners[i].CapitalContributed.IsPositive() {
				weights[i] = partners[i].CapitalContributed
				total = total.Add(weights[i])
			}
		}
	}

	if !total.IsPositive() {
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		total = decimal.NewFromInt(int64(n))
	}

	shares := make([]decimal.Decimal, n)
	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = weights[i].Div(total)
		assigned = assigned.Add(shares[i])
	}
	shares[n-1] = decimal.NewFromInt(1).Sub(assigned)
	return shares
}
