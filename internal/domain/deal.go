package domain

import (
	"github.com/google/uuid"
)

// Deal bundles everything the engine needs for one investment: the partners,
// the tier cascade, the deal-level switches and the cash-flow schedule.
type Deal struct {
	ID        uuid.UUID         `json:"id"   db:"id"`
	Name      string            `json:"name" db:"name"`
	Settings  WaterfallSettings `json:"settings"`
	Partners  []Partner         `json:"partners"`
	Tiers     []Tier            `json:"tiers"`
	CashFlows []CashFlowEvent   `json:"cash_flows"`
}

// IsEmpty returns true when the deal has nothing to distribute or nobody to
// distribute to.
func (d *Deal) IsEmpty() bool {
	return len(d.CashFlows) == 0 || len(d.Tiers) == 0 || len(d.Partners) == 0
}

// LPCount returns the number of limited partners.
func (d *Deal) LPCount() int {
	n := 0
	for i := range d.Partners {
		if d.Partners[i].IsLP() {
			n++
		}
	}
	return n
}
