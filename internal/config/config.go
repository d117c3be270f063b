// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// AppConfig holds process-level settings.
type AppConfig struct {
	Env      string // "development" | "production"
	LogLevel string // "debug" | "info" | "warn" | "error"
}

// DBConfig holds PostgreSQL connection settings. DSN may be empty when deals
// are only ever loaded from scenario files.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 10
	MaxIdleConns    int           // default 5
	ConnMaxLifetime time.Duration // default 5m
	QueryTimeout    time.Duration // default 10s
}

// EngineConfig holds the conventions applied when a deal omits a rate.
type EngineConfig struct {
	DefaultPreferredReturn float64   // default 0.08
	PromoteHurdleRates     []float64 // IRR hurdle per promote tier, default 0.12,0.15,0.18,0.20
	HurdleMultiples        []float64 // multiple hurdle per promote tier, default 1.5,1.75,2.0
}

// SolverConfig holds IRR root-finder settings.
type SolverConfig struct {
	Guess         float64 // default 0.1
	MaxIterations int     // default 100
	Tolerance     float64 // default 1e-7
}

// TraceConfig holds diagnostic trace settings.
type TraceConfig struct {
	Enabled        bool
	VerbosePeriods []int // period ids that get per-partner balance detail
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Engine EngineConfig
	Solver SolverConfig
	Trace  TraceConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.App.Env == "production"
}

// Validate checks that all configuration values are usable.
// Every problem found is reported, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug|info|warn|error, got %q", c.App.LogLevel))
	}

	if c.DB.MaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DB.MaxOpenConns))
	}

	if c.Engine.DefaultPreferredReturn <= -1 || c.Engine.DefaultPreferredReturn > 1 {
		errs = append(errs, fmt.Errorf(
			"ENGINE_DEFAULT_PREFERRED_RETURN must be in (-1, 1], got %.4f",
			c.Engine.DefaultPreferredReturn,
		))
	}
	for i, r := range c.Engine.PromoteHurdleRates {
		if r <= -1 {
			errs = append(errs, fmt.Errorf("ENGINE_PROMOTE_HURDLE_RATES[%d] must be > -1, got %.4f", i, r))
		}
	}
	for i, m := range c.Engine.HurdleMultiples {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("ENGINE_HURDLE_MULTIPLES[%d] must be positive, got %.4f", i, m))
		}
	}

	if c.Solver.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("SOLVER_MAX_ITERATIONS must be positive, got %d", c.Solver.MaxIterations))
	}
	if c.Solver.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("SOLVER_TOLERANCE must be positive, got %g", c.Solver.Tolerance))
	}
	if c.Solver.Guess <= -1 {
		errs = append(errs, fmt.Errorf("SOLVER_GUESS must be > -1, got %.4f", c.Solver.Guess))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = Load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Loader
// ──────────────────────────────────────────────────────────────────────────────

// Load reads a fresh Config from the environment without touching the
// singleton. It does not validate.
func Load() (*Config, error) {
	cfg := &Config{}

	// ── App ───────────────────────────────────────────────────────────────────
	cfg.App = AppConfig{
		Env:      getEnv("ENVIRONMENT", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             getEnv("DATABASE_DSN", ""),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		QueryTimeout:    getDuration("DB_QUERY_TIMEOUT", 10*time.Second),
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	pref, err := getFloat("ENGINE_DEFAULT_PREFERRED_RETURN", 0.08)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_DEFAULT_PREFERRED_RETURN: %w", err)
	}
	rates, err := getFloats("ENGINE_PROMOTE_HURDLE_RATES", []float64{0.12, 0.15, 0.18, 0.20})
	if err != nil {
		return nil, fmt.Errorf("ENGINE_PROMOTE_HURDLE_RATES: %w", err)
	}
	multiples, err := getFloats("ENGINE_HURDLE_MULTIPLES", []float64{1.5, 1.75, 2.0})
	if err != nil {
		return nil, fmt.Errorf("ENGINE_HURDLE_MULTIPLES: %w", err)
	}

	cfg.Engine = EngineConfig{
		DefaultPreferredReturn: pref,
		PromoteHurdleRates:     rates,
		HurdleMultiples:        multiples,
	}

	// ── Solver ────────────────────────────────────────────────────────────────
	guess, err := getFloat("SOLVER_GUESS", 0.1)
	if err != nil {
		return nil, fmt.Errorf("SOLVER_GUESS: %w", err)
	}
	maxIter, err := getInt("SOLVER_MAX_ITERATIONS", 100)
	if err != nil {
		return nil, fmt.Errorf("SOLVER_MAX_ITERATIONS: %w", err)
	}
	tol, err := getFloat("SOLVER_TOLERANCE", 1e-7)
	if err != nil {
		return nil, fmt.Errorf("SOLVER_TOLERANCE: %w", err)
	}

	cfg.Solver = SolverConfig{
		Guess:         guess,
		MaxIterations: maxIter,
		Tolerance:     tol,
	}

	// ── Trace ─────────────────────────────────────────────────────────────────
	enabled, err := getBool("TRACE_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("TRACE_ENABLED: %w", err)
	}
	periods, err := getInts("TRACE_VERBOSE_PERIODS")
	if err != nil {
		return nil, fmt.Errorf("TRACE_VERBOSE_PERIODS: %w", err)
	}

	cfg.Trace = TraceConfig{
		Enabled:        enabled,
		VerbosePeriods: periods,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool %q", v)
	}
	return b, nil
}

// getFloats parses a comma-separated list, e.g. "0.12,0.15".
func getFloats(key string, defaultVal []float64) ([]float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	var out []float64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", part)
		}
		out = append(out, f)
	}
	return out, nil
}

func getInts(key string) ([]int, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
