package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowEvent is one period of the deal's cash-flow schedule.
//
//	Amount < 0  capital call (contribution)
//	Amount > 0  cash available for distribution
//	Amount == 0 no-op period
type CashFlowEvent struct {
	PeriodID int             `json:"period_id" db:"period_id"`
	Date     time.Time       `json:"date"      db:"period_date"`
	Amount   decimal.Decimal `json:"amount"    db:"amount"`
}

// IsContribution returns true for capital calls.
func (c *CashFlowEvent) IsContribution() bool {
	return c.Amount.IsNegative()
}

// IsDistribution returns true when the period carries distributable cash.
func (c *CashFlowEvent) IsDistribution() bool {
	return c.Amount.IsPositive()
}

// NewCashFlowEvent builds an event from loosely typed inputs, as read from a
// spreadsheet export or scenario file. Dates that do not parse and amounts that
// are NaN or infinite are rejected rather than dropped.
func NewCashFlowEvent(periodID int, date string, amount float64) (CashFlowEvent, error) {
	d, err := ParseDate(date)
	if err != nil {
		return CashFlowEvent{}, fmt.Errorf("period %d: %w", periodID, err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return CashFlowEvent{}, fmt.Errorf("period %d: %w", periodID, ErrNonFiniteAmount)
	}
	return CashFlowEvent{
		PeriodID: periodID,
		Date:     d,
		Amount:   decimal.NewFromFloat(amount),
	}, nil
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a calendar date in any of the supported layouts and returns
// it as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date: %w", ErrInvalidCashFlowDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CivilDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q: %w", s, ErrInvalidCashFlowDate)
}

// CivilDate strips the clock and location from t, keeping its calendar date.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b. Negative
// when b precedes a.
func DaysBetween(a, b time.Time) int {
	hours := CivilDate(b).Sub(CivilDate(a)).Hours()
	return int(math.Round(hours / 24))
}

// YearFraction returns the actual/365 year fraction from a to b.
func YearFraction(a, b time.Time) float64 {
	return float64(DaysBetween(a, b)) / 365
}
