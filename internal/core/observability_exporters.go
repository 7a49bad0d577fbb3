package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ExpvarMetricsRecorder publishes one expvar map keyed by operation. Each
// operation holds "success" and "error" counts and a "duration_ms" total.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  *expvar.Map
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated unique name when name is empty. expvar panics on reused names.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("lifeline_contacts_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	ops := new(expvar.Map).Init()
	expvar.Publish(name, ops)
	return &ExpvarMetricsRecorder{name: name, ops: ops}
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

func (r *ExpvarMetricsRecorder) operation(op string, create bool) *expvar.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stats, ok := r.ops.Get(op).(*expvar.Map); ok {
		return stats
	}
	if !create {
		return nil
	}
	stats := new(expvar.Map).Init()
	r.ops.Set(op, stats)
	return stats
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	stats := r.operation(operation, true)
	stats.Add(outcomeLabel(success), 1)
	stats.AddFloat("duration_ms", millis(duration))
}

// Count returns how many operations ended with the given outcome.
func (r *ExpvarMetricsRecorder) Count(operation string, success bool) int64 {
	stats := r.operation(operation, false)
	if stats == nil {
		return 0
	}
	if v, ok := stats.Get(outcomeLabel(success)).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// DurationMS returns the summed duration of operation in milliseconds.
func (r *ExpvarMetricsRecorder) DurationMS(operation string) float64 {
	stats := r.operation(operation, false)
	if stats == nil {
		return 0
	}
	if v, ok := stats.Get("duration_ms").(*expvar.Float); ok {
		return v.Value()
	}
	return 0
}

// SpanRecord is one line written by JSONLinesTracer.
type SpanRecord struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// JSONLinesTracer writes each finished span as a JSON line. The CLI uses it
// for LIFELINE_TRACE_JSON.
type JSONLinesTracer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	clock Clock
}

// NewJSONLinesTracer writes spans to w. A nil clock reports the system time.
func NewJSONLinesTracer(w io.Writer, clock Clock) *JSONLinesTracer {
	if clock == nil {
		clock = ClockFunc(nil)
	}
	return &JSONLinesTracer{enc: json.NewEncoder(w), clock: clock}
}

// Start implements Tracer.
func (t *JSONLinesTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonLinesSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type jsonLinesSpan struct {
	tracer    *JSONLinesTracer
	operation string
	started   time.Time
}

func (s *jsonLinesSpan) End(err error) {
	rec := SpanRecord{
		Operation:  s.operation,
		Status:     outcomeLabel(err == nil),
		DurationMS: millis(s.tracer.clock.Now().Sub(s.started)),
		StartedAt:  s.started,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	s.tracer.mu.Lock()
	_ = s.tracer.enc.Encode(rec)
	s.tracer.mu.Unlock()
}

// MultiTracer starts a span on every tracer and ends them together.
type MultiTracer []Tracer

// Start implements Tracer.
func (m MultiTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	spans := make(multiSpan, 0, len(m))
	for _, tracer := range m {
		if tracer == nil {
			continue
		}
		var span TraceSpan
		ctx, span = tracer.Start(ctx, operation)
		spans = append(spans, span)
	}
	return ctx, spans
}

type multiSpan []TraceSpan

func (m multiSpan) End(err error) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].End(err)
	}
}

// LogAuditRecorder writes audit entries through a Logger. Rejected or failed
// mutations are logged at warn.
type LogAuditRecorder struct {
	logger Logger
}

// NewLogAuditRecorder returns an audit sink over logger; nil discards entries.
func NewLogAuditRecorder(logger Logger) LogAuditRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return LogAuditRecorder{logger: logger}
}

// Record implements AuditRecorder.
func (a LogAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	kv := []any{
		"operation", entry.Operation,
		"entity", string(entry.Entity),
		"action", string(entry.Action),
		"contact_id", entry.EntityID,
		"status", string(entry.Status),
		"duration_ms", millis(entry.Duration),
		"at", entry.Timestamp,
	}
	if entry.Status == AuditStatusError {
		a.logger.Warn("contact audit", append(kv, "error", entry.Error)...)
		return
	}
	a.logger.Info("contact audit", kv...)
}
