// Package scenario loads a complete deal (partners, tiers, settings and cash
// flows) from a YAML or JSON file. It is the normalisation boundary for file
// input: dates are parsed, amounts are checked for finiteness, and partners
// without an id get a deterministic one derived from the scenario name.
package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// namespace seeds the SHA-1 ids of partners and deals that a file leaves
// unnamed, so the same file always yields the same ids.
var namespace = uuid.MustParse("6f1c3a52-5d8e-4b7a-9c41-2a0e8d7b9f13")

// ──────────────────────────────────────────────────────────────────────────────
// File layout
// ──────────────────────────────────────────────────────────────────────────────

// Numbers are read as strings so that money never passes through float64.

type fileScenario struct {
	Name      string         `yaml:"name"`
	DealID    string         `yaml:"deal_id"`
	Settings  fileSettings   `yaml:"settings"`
	Partners  []filePartner  `yaml:"partners"`
	Tiers     []fileTier     `yaml:"tiers"`
	CashFlows []fileCashFlow `yaml:"cash_flows"`
}

type fileSettings struct {
	HurdleMethod    string `yaml:"hurdle_method"`
	TierCount       int    `yaml:"tier_count"`
	ReturnOfCapital string `yaml:"return_of_capital"`
	GPCatchUp       bool   `yaml:"gp_catch_up"`
	StartDate       string `yaml:"start_date"`
}

type filePartner struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Role            string `yaml:"role"`
	OwnershipPct    string `yaml:"ownership_pct"`
	Capital         string `yaml:"capital"`
	PreferredReturn string `yaml:"preferred_return"`
}

type fileTier struct {
	Number         int    `yaml:"tier"`
	HurdleKind     string `yaml:"hurdle_kind"`
	HurdleRate     string `yaml:"hurdle_rate"`
	HurdleMultiple string `yaml:"hurdle_multiple"`
	LPSplit        string `yaml:"lp_split"`
	GPSplit        string `yaml:"gp_split"`
	PromotePct     string `yaml:"promote_pct"`
}

type fileCashFlow struct {
	Period int    `yaml:"period"`
	Date   string `yaml:"date"`
	Amount string `yaml:"amount"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Loading
// ──────────────────────────────────────────────────────────────────────────────

// Load reads and decodes the scenario at path.
func Load(path string) (*domain.Deal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scenario.Load: %s: %w", path, domain.ErrScenarioNotFound)
		}
		return nil, fmt.Errorf("scenario.Load: read %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario.Load: %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario document. JSON documents are accepted as YAML.
func Parse(data []byte) (*domain.Deal, error) {
	var raw fileScenario
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	sc := &domain.Deal{Name: raw.Name}

	var err error
	if sc.ID, err = resolveID(raw.DealID, "deal/"+raw.Name); err != nil {
		return nil, fmt.Errorf("deal_id: %w", err)
	}
	if sc.Settings, err = raw.Settings.decode(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	for i, p := range raw.Partners {
		partner, err := p.decode(raw.Name, i)
		if err != nil {
			return nil, fmt.Errorf("partners[%d]: %w", i, err)
		}
		sc.Partners = append(sc.Partners, partner)
	}
	for i, t := range raw.Tiers {
		tier, err := t.decode(i)
		if err != nil {
			return nil, fmt.Errorf("tiers[%d]: %w", i, err)
		}
		sc.Tiers = append(sc.Tiers, tier)
	}
	for i, cf := range raw.CashFlows {
		event, err := cf.decode(i)
		if err != nil {
			return nil, fmt.Errorf("cash_flows[%d]: %w", i, err)
		}
		sc.CashFlows = append(sc.CashFlows, event)
	}
	return sc, nil
}

func (s fileSettings) decode() (domain.WaterfallSettings, error) {
	out := domain.DefaultSettings()
	if s.HurdleMethod != "" {
		out.HurdleMethod = domain.HurdleMethod(strings.ToLower(s.HurdleMethod))
	}
	if s.ReturnOfCapital != "" {
		out.ReturnOfCapital = domain.CapitalPolicy(strings.ToLower(s.ReturnOfCapital))
	}
	out.TierCount = s.TierCount
	out.GPCatchUp = s.GPCatchUp
	if s.StartDate != "" {
		d, err := domain.ParseDate(s.StartDate)
		if err != nil {
			return out, fmt.Errorf("start_date: %w", err)
		}
		out.StartDate = &d
	}
	return out, nil
}

func (p filePartner) decode(scenarioName string, pos int) (domain.Partner, error) {
	out := domain.Partner{
		Name: p.Name,
		Role: domain.PartnerRole(strings.ToUpper(strings.TrimSpace(p.Role))),
	}
	if !out.Role.IsValid() {
		return out, fmt.Errorf("role %q: %w", p.Role, domain.ErrInvalidPartnerRole)
	}

	var err error
	if out.ID, err = resolveID(p.ID, fmt.Sprintf("partner/%s/%d/%s", scenarioName, pos, p.Name)); err != nil {
		return out, fmt.Errorf("id: %w", err)
	}
	if out.OwnershipPct, err = parseDecimal(p.OwnershipPct); err != nil {
		return out, fmt.Errorf("ownership_pct: %w", err)
	}
	if out.CapitalContributed, err = parseDecimal(p.Capital); err != nil {
		return out, fmt.Errorf("capital: %w", err)
	}
	if out.PreferredReturn, err = parseRate(p.PreferredReturn); err != nil {
		return out, fmt.Errorf("preferred_return: %w", err)
	}
	return out, nil
}

func (t fileTier) decode(pos int) (domain.Tier, error) {
	out := domain.Tier{
		Number:     t.Number,
		HurdleKind: domain.HurdleKind(strings.ToLower(t.HurdleKind)),
	}
	if out.Number == 0 {
		out.Number = pos + 1
	}

	var err error
	if t.HurdleRate != "" {
		r, err := parseRate(t.HurdleRate)
		if err != nil {
			return out, fmt.Errorf("hurdle_rate: %w", err)
		}
		out.HurdleRate = &r
	}
	if t.HurdleMultiple != "" {
		m, err := parseDecimal(t.HurdleMultiple)
		if err != nil {
			return out, fmt.Errorf("hurdle_multiple: %w", err)
		}
		out.HurdleMultiple = &m
	}
	if t.PromotePct != "" {
		p, err := parseDecimal(t.PromotePct)
		if err != nil {
			return out, fmt.Errorf("promote_pct: %w", err)
		}
		out.PromotePct = &p
	}
	if out.LPSplit, err = parseDecimal(t.LPSplit); err != nil {
		return out, fmt.Errorf("lp_split: %w", err)
	}
	if out.GPSplit, err = parseDecimal(t.GPSplit); err != nil {
		return out, fmt.Errorf("gp_split: %w", err)
	}
	return out, nil
}

func (c fileCashFlow) decode(pos int) (domain.CashFlowEvent, error) {
	period := c.Period
	if period == 0 {
		period = pos + 1
	}
	date, err := domain.ParseDate(c.Date)
	if err != nil {
		return domain.CashFlowEvent{}, fmt.Errorf("period %d: %w", period, err)
	}
	amount, err := parseDecimal(c.Amount)
	if err != nil {
		return domain.CashFlowEvent{}, fmt.Errorf("period %d: amount: %w", period, err)
	}
	return domain.CashFlowEvent{PeriodID: period, Date: date, Amount: amount}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Scalars
// ──────────────────────────────────────────────────────────────────────────────

// parseDecimal reads a money or ratio scalar. Empty means zero; NaN and
// infinities are rejected with ErrNonFiniteAmount.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if nonFinite(s) {
		return decimal.Zero, fmt.Errorf("%q: %w", s, domain.ErrNonFiniteAmount)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, "_", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, domain.ErrInvalidAmount)
	}
	return d, nil
}

// parseRate reads an annual rate. Empty means zero.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if nonFinite(s) {
		return 0, fmt.Errorf("%q: %w", s, domain.ErrNonFiniteAmount)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("rate %q: %w", s, domain.ErrInvalidAmount)
	}
	return f, nil
}

func nonFinite(s string) bool {
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case ".nan", "nan", ".inf", "inf", "infinity":
		return true
	}
	return false
}

func resolveID(s, name string) (uuid.UUID, error) {
	if s = strings.TrimSpace(s); s != "" {
		return uuid.Parse(s)
	}
	return uuid.NewSHA1(namespace, []byte(name)), nil
}
