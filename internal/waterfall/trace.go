package waterfall

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Trace categories.
const (
	TraceAccrual      = "accrual"
	TraceContribution = "contribution"
	TraceZeroFlow     = "zero_flow"
	TracePreferred    = "preferred"
	TraceCatchUp      = "catch_up"
	TracePromote      = "promote"
	TraceResidual     = "residual"
	TraceSummary      = "summary"
)

// TraceRecord is one diagnostic event. It carries no financial meaning and
// exists to check the model against a spreadsheet reference.
type TraceRecord struct {
	Time     time.Time      `json:"time"`
	Category string         `json:"category"`
	Message  string         `json:"message"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Tracer receives diagnostic records.
type Tracer interface {
	Trace(rec TraceRecord)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(rec TraceRecord)

func (f TracerFunc) Trace(rec TraceRecord) { f(rec) }

// TraceConfig is the per-invocation diagnostic setup. The zero value
// disables tracing.
type TraceConfig struct {
	Sink Tracer
	// VerbosePeriod, when set, selects periods that get per-partner balance
	// detail in addition to the normal records.
	VerbosePeriod func(periodID int) bool
	// Now stamps records; defaults to time.Now.
	Now func() time.Time
}

// Enabled reports whether a sink is attached.
func (c TraceConfig) Enabled() bool {
	return c.Sink != nil
}

// PeriodSet returns a VerbosePeriod predicate matching the given ids.
func PeriodSet(ids ...int) func(int) bool {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id int) bool {
		_, ok := set[id]
		return ok
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Sinks
// ──────────────────────────────────────────────────────────────────────────────

// SlogTracer writes trace records to a slog.Logger at debug level.
type SlogTracer struct {
	logger *slog.Logger
}

// NewSlogTracer returns a Tracer backed by logger (slog.Default when nil).
func NewSlogTracer(logger *slog.Logger) *SlogTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogTracer{logger: logger}
}

func (t *SlogTracer) Trace(rec TraceRecord) {
	keys := make([]string, 0, len(rec.Payload))
	for k := range rec.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2+2*len(keys))
	args = append(args, "category", rec.Category)
	for _, k := range keys {
		args = append(args, k, rec.Payload[k])
	}
	t.logger.Debug(rec.Message, args...)
}

// BufferTracer keeps every record in memory.
type BufferTracer struct {
	mu      sync.Mutex
	records []TraceRecord
}

// NewBufferTracer returns an empty BufferTracer.
func NewBufferTracer() *BufferTracer {
	return &BufferTracer{}
}

func (b *BufferTracer) Trace(rec TraceRecord) {
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
}

// Records returns a copy of the buffered records.
func (b *BufferTracer) Records() []TraceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TraceRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Category returns the buffered records of one category.
func (b *BufferTracer) Category(category string) []TraceRecord {
	var out []TraceRecord
	for _, rec := range b.Records() {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	return out
}
