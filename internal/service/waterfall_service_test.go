package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/waterfall/internal/domain"
	"github.com/evetabi/waterfall/internal/service"
	"github.com/evetabi/waterfall/internal/waterfall"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeLoader serves deals from memory and counts loads.
type fakeLoader struct {
	mu    sync.Mutex
	deals map[uuid.UUID]*domain.Deal
	loads int
}

func (f *fakeLoader) LoadDeal(_ context.Context, id uuid.UUID) (*domain.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	d, ok := f.deals[id]
	if !ok {
		return nil, domain.ErrDealNotFound
	}
	return d, nil
}

func date(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// oneTierDeal: 90/10 LP/GP, 8 % pref, 1000 called and 1200 returned a year later.
func oneTierDeal(name string) *domain.Deal {
	return &domain.Deal{
		ID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		Name: name,
		Partners: []domain.Partner{
			{ID: uuid.New(), Name: "LP", Role: domain.RoleLP, OwnershipPct: decimal.RequireFromString("0.9"), CapitalContributed: decimal.NewFromInt(900), PreferredReturn: 0.08},
			{ID: uuid.New(), Name: "GP", Role: domain.RoleGP, OwnershipPct: decimal.RequireFromString("0.1"), CapitalContributed: decimal.NewFromInt(100), PreferredReturn: 0.08},
		},
		Tiers: []domain.Tier{
			{Number: 1, LPSplit: decimal.RequireFromString("0.9"), GPSplit: decimal.RequireFromString("0.1")},
		},
		CashFlows: []domain.CashFlowEvent{
			{PeriodID: 1, Date: date("2023-01-01"), Amount: decimal.NewFromInt(-1000)},
			{PeriodID: 2, Date: date("2024-01-01"), Amount: decimal.NewFromInt(1200)},
		},
		Settings: domain.DefaultSettings(),
	}
}

func newService(loader service.DealLoader, workers int) *service.WaterfallService {
	return newServiceWithEngine(loader, waterfall.NewEngine(waterfall.DefaultOptions()), workers)
}

func newServiceWithEngine(loader service.DealLoader, engine *waterfall.Engine, workers int) *service.WaterfallService {
	return service.NewWaterfallService(loader, engine, workers)
}

func TestWaterfallService_Run(t *testing.T) {
	deal := oneTierDeal("harbor")
	loader := &fakeLoader{deals: map[uuid.UUID]*domain.Deal{deal.ID: deal}}
	svc := newService(loader, 1)

	got, res, err := svc.Run(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != deal {
		t.Error("Run should return the loaded deal")
	}

	lp := res.StateFor(deal.Partners[0].ID)
	gp := res.StateFor(deal.Partners[1].ID)
	if lp == nil || gp == nil {
		t.Fatal("missing partner states")
	}
	if !lp.TotalDistributed.Equal(decimal.NewFromInt(1080)) {
		t.Errorf("LP distributed = %s, want 1080", lp.TotalDistributed)
	}
	if !gp.TotalDistributed.Equal(decimal.NewFromInt(120)) {
		t.Errorf("GP distributed = %s, want 120", gp.TotalDistributed)
	}
	if diff := lp.IRR - 0.2; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("LP IRR = %.8f, want 0.2", lp.IRR)
	}
}

func TestWaterfallService_RunNotFound(t *testing.T) {
	svc := newService(&fakeLoader{deals: map[uuid.UUID]*domain.Deal{}}, 1)

	_, _, err := svc.Run(context.Background(), uuid.New())
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestWaterfallService_RunWithoutLoader(t *testing.T) {
	svc := newService(nil, 1)
	if _, _, err := svc.Run(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error without a loader")
	}
}

func TestWaterfallService_ComputeInvalidInput(t *testing.T) {
	deal := oneTierDeal("broken")
	deal.Partners[1].Role = "sponsor"

	_, err := newService(nil, 1).Compute(deal)
	if !domain.IsInputError(err) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestWaterfallService_RunManyKeepsGoingPastFailures(t *testing.T) {
	deals := map[uuid.UUID]*domain.Deal{}
	var ids []uuid.UUID
	for i := 0; i < 6; i++ {
		d := oneTierDeal(fmt.Sprintf("deal-%d", i))
		deals[d.ID] = d
		ids = append(ids, d.ID)
	}
	missing := uuid.New()
	ids = append(ids[:3], append([]uuid.UUID{missing}, ids[3:]...)...)

	loader := &fakeLoader{deals: deals}
	runs := newService(loader, 3).RunMany(context.Background(), ids)

	if len(runs) != len(ids) {
		t.Fatalf("got %d runs, want %d", len(runs), len(ids))
	}
	for i, run := range runs {
		if run.DealID != ids[i] {
			t.Errorf("run %d: id %s, want %s (order must follow input)", i, run.DealID, ids[i])
		}
		if run.DealID == missing {
			if !domain.IsNotFound(run.Err) {
				t.Errorf("missing deal: err = %v, want not found", run.Err)
			}
			continue
		}
		if run.Err != nil {
			t.Errorf("deal %s: %v", run.DealID, run.Err)
		}
	}
	if loader.loads != len(ids) {
		t.Errorf("loads = %d, want %d", loader.loads, len(ids))
	}
}

func TestWaterfallService_RunManyCancelled(t *testing.T) {
	d := oneTierDeal("cancelled")
	svc := newService(&fakeLoader{deals: map[uuid.UUID]*domain.Deal{d.ID: d}}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs := svc.RunMany(ctx, []uuid.UUID{d.ID, d.ID})
	for _, run := range runs {
		if run.Err == nil {
			t.Error("expected context error for every deal")
		}
	}
}

// gateLoader blocks every load until release is closed, ignoring ctx.
type gateLoader struct {
	fakeLoader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateLoader) LoadDeal(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.fakeLoader.LoadDeal(ctx, id)
}

// Cancelling while every worker is busy must fail the queued deals without
// waiting for a free worker.
func TestWaterfallService_RunManyCancelledWhileWaitingForWorker(t *testing.T) {
	a, b, c := oneTierDeal("a"), oneTierDeal("b"), oneTierDeal("c")
	loader := &gateLoader{
		fakeLoader: fakeLoader{deals: map[uuid.UUID]*domain.Deal{a.ID: a, b.ID: b, c.ID: c}},
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc := newService(loader, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan []service.DealRun)
	go func() { done <- svc.RunMany(ctx, []uuid.UUID{a.ID, b.ID, c.ID}) }()

	<-loader.started
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(loader.release)

	var runs []service.DealRun
	select {
	case runs = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunMany did not return")
	}

	if runs[0].Err != nil {
		t.Errorf("deal a was already running, got %v", runs[0].Err)
	}
	for _, run := range runs[1:] {
		if !errors.Is(run.Err, context.Canceled) {
			t.Errorf("deal %s: err = %v, want context.Canceled", run.DealID, run.Err)
		}
	}

	loader.mu.Lock()
	defer loader.mu.Unlock()
	if loader.loads != 1 {
		t.Errorf("loads = %d, want 1 (queued deals must not be loaded)", loader.loads)
	}
}
