package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/evetabi/waterfall/internal/waterfall"
	"github.com/google/uuid"
)

// DealLoader supplies deals by id. repository.DealRepository implements it.
type DealLoader interface {
	LoadDeal(ctx context.Context, id uuid.UUID) (*domain.Deal, error)
}

// DealRun is the outcome of one deal in a batch.
type DealRun struct {
	DealID uuid.UUID
	Deal   *domain.Deal
	Result *domain.WaterfallResult
	Err    error
}

// WaterfallService loads deals and runs them through the engine.
type WaterfallService struct {
	loader  DealLoader
	engine  *waterfall.Engine
	workers int
}

// NewWaterfallService builds a WaterfallService. loader may be nil when only
// in-memory deals are computed. workers bounds RunMany; values below 1 mean 1.
func NewWaterfallService(loader DealLoader, engine *waterfall.Engine, workers int) *WaterfallService {
	if workers < 1 {
		workers = 1
	}
	return &WaterfallService{loader: loader, engine: engine, workers: workers}
}

// ──────────────────────────────────────────────────────────────────────────────
// Single deal
// ──────────────────────────────────────────────────────────────────────────────

// Run loads the deal with the given id and computes its waterfall.
func (s *WaterfallService) Run(ctx context.Context, dealID uuid.UUID) (*domain.Deal, *domain.WaterfallResult, error) {
	if s.loader == nil {
		return nil, nil, fmt.Errorf("waterfall_service.Run: no deal loader configured")
	}
	deal, err := s.loader.LoadDeal(ctx, dealID)
	if err != nil {
		return nil, nil, fmt.Errorf("waterfall_service.Run: load %s: %w", dealID, err)
	}
	res, err := s.Compute(deal)
	if err != nil {
		return deal, nil, fmt.Errorf("waterfall_service.Run: %w", err)
	}
	return deal, res, nil
}

// Compute runs the engine over an in-memory deal.
func (s *WaterfallService) Compute(deal *domain.Deal) (*domain.WaterfallResult, error) {
	if deal.IsEmpty() {
		log.Printf("[waterfall] deal %s (%q) has nothing to distribute", deal.ID, deal.Name)
	}

	settings := deal.Settings
	res, err := s.engine.Compute(deal.CashFlows, deal.Tiers, deal.Partners, &settings)
	if err != nil {
		return nil, fmt.Errorf("compute deal %s: %w", deal.ID, err)
	}

	log.Printf("[waterfall] deal %s computed: periods=%d partners=%d lps=%d distributions=%d",
		deal.ID, len(deal.CashFlows), len(deal.Partners), deal.LPCount(), len(res.Distributions))
	for i := range res.PartnerStates {
		st := &res.PartnerStates[i]
		log.Printf("[waterfall]   %s %-2s contributed=%s distributed=%s profit=%s irr=%.4f em=%s",
			st.Name, st.Role, st.TotalContributed.StringFixed(2), st.TotalDistributed.StringFixed(2),
			st.Profit().StringFixed(2), st.IRR, st.EquityMultiple.StringFixed(3))
	}
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Batch
// ──────────────────────────────────────────────────────────────────────────────

// RunMany computes every deal in ids with at most s.workers running at once.
// A failing deal does NOT abort the others; its error is reported in its
// DealRun. Results come back in the order of ids.
func (s *WaterfallService) RunMany(ctx context.Context, ids []uuid.UUID) []DealRun {
	out := make([]DealRun, len(ids))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, id := range ids {
		out[i].DealID = id
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out[i].Err = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()

			deal, res, err := s.Run(ctx, id)
			out[i].Deal, out[i].Result, out[i].Err = deal, res, err
			if err != nil {
				log.Printf("[waterfall] ERROR running deal %s: %v", id, err)
			}
		}(i, id)
	}
	wg.Wait()
	return out
}
