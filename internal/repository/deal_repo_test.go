package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      sql.NullString
		want    decimal.Decimal
		wantErr error
	}{
		{"null is zero", sql.NullString{}, decimal.Zero, nil},
		{"negative call", sql.NullString{String: "-1000.00", Valid: true}, decimal.NewFromInt(-1000), nil},
		{"fractional", sql.NullString{String: "1200.125", Valid: true}, decimal.RequireFromString("1200.125"), nil},
		{"nan", sql.NullString{String: "NaN", Valid: true}, decimal.Zero, domain.ErrNonFiniteAmount},
		{"negative infinity", sql.NullString{String: "-Infinity", Valid: true}, decimal.Zero, domain.ErrNonFiniteAmount},
		{"garbage", sql.NullString{String: "12,5", Valid: true}, decimal.Zero, domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDealRowSettings(t *testing.T) {
	t.Run("nulls fall back to defaults", func(t *testing.T) {
		s := dealRow{}.settings()
		if s != domain.DefaultSettings() {
			t.Errorf("settings = %+v, want defaults", s)
		}
	})

	t.Run("stated columns win", func(t *testing.T) {
		start := time.Date(2023, 1, 1, 15, 30, 0, 0, time.FixedZone("EST", -5*3600))
		s := dealRow{
			HurdleMethod:    sql.NullString{String: "hybrid", Valid: true},
			TierCount:       sql.NullInt64{Int64: 3, Valid: true},
			ReturnOfCapital: sql.NullString{String: "lp_first", Valid: true},
			GPCatchUp:       sql.NullBool{Bool: true, Valid: true},
			StartDate:       sql.NullTime{Time: start, Valid: true},
		}.settings()

		if s.HurdleMethod != domain.MethodHybrid || s.ReturnOfCapital != domain.PolicyLPFirst {
			t.Errorf("settings = %+v", s)
		}
		if s.TierCount != 3 || !s.GPCatchUp {
			t.Errorf("settings = %+v", s)
		}
		if s.StartDate == nil || s.StartDate.Format("2006-01-02") != "2023-01-01" {
			t.Errorf("StartDate = %v, want 2023-01-01", s.StartDate)
		}
	})
}
