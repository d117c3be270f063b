// Package main is the command-line entry point for the equity waterfall
// engine. It computes one deal from a scenario file, or one or more deals
// from the host database, and writes the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/evetabi/waterfall/internal/config"
	"github.com/evetabi/waterfall/internal/domain"
	"github.com/evetabi/waterfall/internal/repository"
	"github.com/evetabi/waterfall/internal/scenario"
	"github.com/evetabi/waterfall/internal/service"
	"github.com/evetabi/waterfall/internal/waterfall"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if domain.IsInputError(err) || domain.IsNotFound(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// dealOutput is one deal's entry in the JSON document.
type dealOutput struct {
	DealID uuid.UUID               `json:"deal_id"`
	Name   string                  `json:"name"`
	Result *domain.WaterfallResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func run() error {
	scenarioFlag := flag.String("scenario", "", "path to a YAML or JSON deal scenario")
	dealFlag := flag.StringSlice("deal", nil, "deal id(s) to load from the database (repeatable, comma-separated)")
	outFlag := flag.StringP("out", "o", "-", "output file; - writes to stdout")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	traceFlag := flag.Bool("trace", false, "log diagnostic trace records (or set TRACE_ENABLED=true)")
	verbosePeriods := flag.IntSlice("verbose-period", nil, "period ids that get per-partner balance detail in the trace")
	workers := flag.Int("workers", 4, "deals computed in parallel with --deal")
	flag.Parse()

	if (*scenarioFlag == "") == (len(*dealFlag) == 0) {
		flag.Usage()
		return errors.New("exactly one of --scenario or --deal is required")
	}

	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// ── 2. Engine ─────────────────────────────────────────────────────────────
	opts := waterfall.NewOptions(cfg)
	if *traceFlag || cfg.Trace.Enabled {
		opts.Trace.Sink = waterfall.NewSlogTracer(logger)
	}
	if len(*verbosePeriods) > 0 {
		opts.Trace.VerbosePeriod = waterfall.PeriodSet(*verbosePeriods...)
	}
	engine := waterfall.NewEngine(opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Compute ────────────────────────────────────────────────────────────
	var outputs []dealOutput
	var err error
	if *scenarioFlag != "" {
		outputs, err = runScenario(engine, *scenarioFlag)
	} else {
		outputs, err = runDeals(ctx, cfg, logger, engine, *dealFlag, *workers)
	}
	if err != nil {
		return err
	}

	// ── 4. Write ──────────────────────────────────────────────────────────────
	w := io.Writer(os.Stdout)
	if *outFlag != "-" && *outFlag != "" {
		f, err := os.Create(*outFlag)
		if err != nil {
			return fmt.Errorf("create %s: %w", *outFlag, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(outputs); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	failed := 0
	for _, o := range outputs {
		if o.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deals failed", failed, len(outputs))
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var h slog.Handler
	if cfg.IsProd() {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

func runScenario(engine *waterfall.Engine, path string) ([]dealOutput, error) {
	deal, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	svc := service.NewWaterfallService(nil, engine, 1)
	res, err := svc.Compute(deal)
	if err != nil {
		return nil, err
	}
	return []dealOutput{{DealID: deal.ID, Name: deal.Name, Result: res}}, nil
}

func runDeals(ctx context.Context, cfg *config.Config, logger *slog.Logger, engine *waterfall.Engine, raw []string, workers int) ([]dealOutput, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("--deal %q: %w", s, err)
		}
		ids = append(ids, id)
	}

	if cfg.DB.DSN == "" {
		return nil, errors.New("DATABASE_DSN must be set to load deals by id")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	logger.Info("database connected", "deals", len(ids))

	repo := repository.NewDealRepository(db, cfg.DB.QueryTimeout)
	svc := service.NewWaterfallService(repo, engine, workers)

	outputs := make([]dealOutput, 0, len(ids))
	for _, r := range svc.RunMany(ctx, ids) {
		o := dealOutput{DealID: r.DealID, Result: r.Result}
		if r.Deal != nil {
			o.Name = r.Deal.Name
		}
		if r.Err != nil {
			logger.Error("deal failed", "deal", r.DealID, "err", r.Err)
			o.Error = r.Err.Error()
		}
		outputs = append(outputs, o)
	}
	return outputs, nil
}
