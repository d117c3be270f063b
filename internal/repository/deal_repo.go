package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// DealRepository reads deals from the host application's tables. It never
// writes: the schema belongs to the host and results are handed back to the
// caller.
type DealRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDealRepository creates a new DealRepository. A positive timeout bounds
// every LoadDeal call.
func NewDealRepository(db *sqlx.DB, timeout time.Duration) *DealRepository {
	return &DealRepository{db: db, timeout: timeout}
}

// dealRow is the deals table row; the settings columns are nullable.
type dealRow struct {
	ID              uuid.UUID      `db:"id"`
	Name            string         `db:"name"`
	HurdleMethod    sql.NullString `db:"hurdle_method"`
	TierCount       sql.NullInt64  `db:"tier_count"`
	ReturnOfCapital sql.NullString `db:"return_of_capital"`
	GPCatchUp       sql.NullBool   `db:"gp_catch_up"`
	StartDate       sql.NullTime   `db:"start_date"`
}

func (r dealRow) settings() domain.WaterfallSettings {
	s := domain.DefaultSettings()
	if r.HurdleMethod.Valid && r.HurdleMethod.String != "" {
		s.HurdleMethod = domain.HurdleMethod(r.HurdleMethod.String)
	}
	if r.TierCount.Valid {
		s.TierCount = int(r.TierCount.Int64)
	}
	if r.ReturnOfCapital.Valid && r.ReturnOfCapital.String != "" {
		s.ReturnOfCapital = domain.CapitalPolicy(r.ReturnOfCapital.String)
	}
	s.GPCatchUp = r.GPCatchUp.Valid && r.GPCatchUp.Bool
	if r.StartDate.Valid {
		d := domain.CivilDate(r.StartDate.Time)
		s.StartDate = &d
	}
	return s
}

// LoadDeal fetches a deal with its partners, tiers and cash flows in one
// read-only transaction, so the four reads see the same snapshot.
// Returns ErrDealNotFound when no deal has the given id.
func (r *DealRepository) LoadDeal(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("deal_repo.LoadDeal: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var row dealRow
	err = tx.GetContext(ctx, &row, `
		SELECT id, name, hurdle_method, tier_count, return_of_capital, gp_catch_up, start_date
		FROM deals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDealNotFound
		}
		return nil, fmt.Errorf("deal_repo.LoadDeal: deal: %w", err)
	}

	deal := &domain.Deal{ID: row.ID, Name: row.Name, Settings: row.settings()}

	if deal.Partners, err = r.partners(ctx, tx, id); err != nil {
		return nil, err
	}
	if deal.Tiers, err = r.tiers(ctx, tx, id); err != nil {
		return nil, err
	}
	if deal.CashFlows, err = r.cashFlows(ctx, tx, id); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("deal_repo.LoadDeal: commit: %w", err)
	}
	return deal, nil
}

// partners returns the deal's partners in their stable display order.
func (r *DealRepository) partners(ctx context.Context, tx *sqlx.Tx, dealID uuid.UUID) ([]domain.Partner, error) {
	var partners []domain.Partner
	err := tx.SelectContext(ctx, &partners, `
		SELECT id, name, role,
		       COALESCE(ownership_pct, 0)       AS ownership_pct,
		       COALESCE(capital_contributed, 0) AS capital_contributed,
		       COALESCE(preferred_return, 0)    AS preferred_return
		FROM deal_partners
		WHERE deal_id = $1
		ORDER BY sort_order ASC, created_at ASC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("deal_repo.partners: %w", err)
	}
	return partners, nil
}

func (r *DealRepository) tiers(ctx context.Context, tx *sqlx.Tx, dealID uuid.UUID) ([]domain.Tier, error) {
	var tiers []domain.Tier
	err := tx.SelectContext(ctx, &tiers, `
		SELECT tier_number,
		       COALESCE(hurdle_kind, '') AS hurdle_kind,
		       hurdle_rate, hurdle_multiple,
		       COALESCE(lp_split, 0) AS lp_split,
		       COALESCE(gp_split, 0) AS gp_split,
		       promote_pct
		FROM deal_tiers
		WHERE deal_id = $1
		ORDER BY tier_number ASC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("deal_repo.tiers: %w", err)
	}
	return tiers, nil
}

// cashFlows returns the schedule in period order. A NULL date comes back as
// the zero time so the engine rejects the period instead of it being dropped;
// a NULL amount is a no-op period.
func (r *DealRepository) cashFlows(ctx context.Context, tx *sqlx.Tx, dealID uuid.UUID) ([]domain.CashFlowEvent, error) {
	var rows []struct {
		PeriodID int            `db:"period_id"`
		Date     sql.NullTime   `db:"period_date"`
		Amount   sql.NullString `db:"amount"`
	}
	err := tx.SelectContext(ctx, &rows, `
		SELECT period_id, period_date, amount::text AS amount
		FROM deal_cash_flows
		WHERE deal_id = $1
		ORDER BY period_id ASC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("deal_repo.cashFlows: %w", err)
	}

	out := make([]domain.CashFlowEvent, 0, len(rows))
	for _, row := range rows {
		cf := domain.CashFlowEvent{PeriodID: row.PeriodID}
		if row.Date.Valid {
			cf.Date = domain.CivilDate(row.Date.Time)
		}
		if cf.Amount, err = parseAmount(row.Amount); err != nil {
			return nil, fmt.Errorf("deal_repo.cashFlows: period %d: %w", row.PeriodID, err)
		}
		out = append(out, cf)
	}
	return out, nil
}

// parseAmount converts a NUMERIC rendered as text. Postgres numerics may hold
// NaN and infinities, which the engine cannot distribute.
func parseAmount(v sql.NullString) (decimal.Decimal, error) {
	if !v.Valid {
		return decimal.Zero, nil
	}
	switch strings.ToLower(strings.TrimLeft(v.String, "+-")) {
	case "nan", "infinity":
		return decimal.Zero, fmt.Errorf("%q: %w", v.String, domain.ErrNonFiniteAmount)
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", v.String, domain.ErrInvalidAmount)
	}
	return d, nil
}
