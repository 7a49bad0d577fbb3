package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"lifeline/pkg/domain"
)

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

type captureTracer struct {
	mu    sync.Mutex
	ended []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
	s.tracer.mu.Unlock()
}

func TestRepositoryObservability(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	repo := newLoadedRepository(t, newFakeStore(),
		WithClock(ClockFunc(func() time.Time { return fixed })),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithIDGenerator(sequentialIDs()),
	)
	if _, err := repo.Add(ctx, domain.ContactDraft{Name: "Partner"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, id := range []string{"1", "2", "3", "4"} {
		_, _ = repo.Delete(ctx, id)
	}
	flush(t, repo)

	if !metrics.has("load", true) || !metrics.has("add", true) || !metrics.has("delete", false) || !metrics.has("persist", true) {
		t.Fatalf("missing metrics observations: %+v", metrics.calls)
	}
	if !tracer.has("load", true) || !tracer.has("delete", false) || !tracer.has("persist", true) {
		t.Fatalf("missing spans: %+v", tracer.ended)
	}
	if len(audit.entries) != 5 {
		t.Fatalf("expected 5 audit entries, got %d", len(audit.entries))
	}
	added := audit.entries[0]
	if added.Operation != "add" || added.Action != domain.ActionCreate || added.EntityID != "id-1" ||
		added.Status != AuditStatusSuccess || !added.Timestamp.Equal(fixed) || added.Entity != domain.EntityContact {
		t.Fatalf("unexpected add audit entry %+v", added)
	}
	rejected := audit.entries[4]
	if rejected.Status != AuditStatusError || rejected.EntityID != "4" || !strings.Contains(rejected.Error, "Minimum of 4") {
		t.Fatalf("unexpected rejected audit entry %+v", rejected)
	}
}

func TestLoadFailureObserved(t *testing.T) {
	store := newFakeStore()
	store.readErr = errors.New("io")
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	newLoadedRepository(t, store, WithMetricsRecorder(metrics), WithTracer(tracer))
	if !metrics.has("load", false) || !tracer.has("load", false) {
		t.Fatalf("expected failed load to be observed")
	}
}

func TestDefaultRepositoryOptions(t *testing.T) {
	opts := defaultRepositoryOptions()
	if opts.clock == nil || opts.logger == nil || opts.audit == nil || opts.metrics == nil || opts.tracer == nil || opts.ids == nil || opts.engine == nil {
		t.Fatalf("expected defaults populated")
	}
	if opts.key != domain.DefaultStorageKey || opts.limits != domain.DefaultLimits() || opts.writeTimeout != 0 {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	_ = opts.clock.Now()
	opts.audit.Record(context.Background(), AuditEntry{})
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)
	var l noopLogger
	l.Debug("d", "k", 1)
	l.Info("i", "k", 2)
	l.Warn("w", "k", 3)
	l.Error("e", "k", 4)
	if names := opts.engine.Rules(); len(names) != 3 {
		t.Fatalf("expected three default rules, got %v", names)
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	opts := defaultRepositoryOptions()
	for _, opt := range []Option{WithClock(nil), WithLogger(nil), WithMetricsRecorder(nil), WithTracer(nil), WithAuditRecorder(nil), WithIDGenerator(nil), WithRulesEngine(nil), WithStorageKey(""), WithWriteTimeout(-time.Second)} {
		opt(&opts)
	}
	if opts.clock == nil || opts.logger == nil || opts.ids == nil || opts.engine == nil || opts.key == "" || opts.writeTimeout != 0 {
		t.Fatalf("nil options overwrote defaults")
	}
}

func TestClockFunc(t *testing.T) {
	if got := ClockFunc(nil).Now(); got.IsZero() || got.Location() != time.UTC {
		t.Fatalf("expected UTC system time, got %v", got)
	}
	local := time.Date(2024, 7, 4, 12, 0, 0, 0, time.FixedZone("offset", -5*3600))
	if got := ClockFunc(func() time.Time { return local }).Now(); !got.Equal(local) || got.Location() != time.UTC {
		t.Fatalf("expected UTC conversion, got %v", got)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "add", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "add", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)
	if rec.Count("add", true) != 1 || rec.Count("add", false) != 1 {
		t.Fatalf("unexpected add counts %d/%d", rec.Count("add", true), rec.Count("add", false))
	}
	if rec.DurationMS("add") != 3 {
		t.Fatalf("unexpected add duration %v", rec.DurationMS("add"))
	}
	if rec.Count("delete", true) != 0 || rec.DurationMS("delete") != 0 {
		t.Fatalf("expected nothing recorded for delete")
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), `"duration_ms"`) {
		t.Fatalf("expected expvar export under %s", rec.Name())
	}
}

func TestJSONLinesTracer(t *testing.T) {
	var buf syncBuffer
	base := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	clock := ClockFunc(func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
	})
	repo := newLoadedRepository(t, newFakeStore(), WithTracer(NewJSONLinesTracer(&buf, clock)))
	ctx := context.Background()
	if _, err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Delete(ctx, "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Delete(ctx, "3"); err == nil {
		t.Fatalf("expected floor rejection")
	}
	flush(t, repo)

	var spans []SpanRecord
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec SpanRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if rec.Operation != "persist" {
			spans = append(spans, rec)
		}
	}
	if len(spans) != 4 {
		t.Fatalf("expected load and three delete spans, got %+v", spans)
	}
	if spans[0].Operation != "load" || spans[0].Status != "success" {
		t.Fatalf("unexpected load span %+v", spans[0])
	}
	last := spans[3]
	if last.Operation != "delete" || last.Status != "error" || !strings.Contains(last.Error, "Minimum of 4") {
		t.Fatalf("unexpected rejected span %+v", last)
	}
	if last.DurationMS <= 0 || last.StartedAt.Before(base) {
		t.Fatalf("expected clock-driven timing, got %+v", last)
	}
}

// syncBuffer is a bytes.Buffer safe for the background writer's spans.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMultiTracer(t *testing.T) {
	a, b := &captureTracer{}, &captureTracer{}
	repo := newLoadedRepository(t, newFakeStore(), WithTracer(MultiTracer{a, nil, b}))
	if _, err := repo.Add(context.Background(), domain.ContactDraft{Name: "Partner"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !a.has("add", true) || !b.has("add", true) {
		t.Fatalf("expected add span on both tracers")
	}
}

func TestLogAuditRecorder(t *testing.T) {
	logger := &captureLogger{}
	repo := newLoadedRepository(t, newFakeStore(), WithAuditRecorder(NewLogAuditRecorder(logger)))
	ctx := context.Background()
	if _, err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Delete(ctx, "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Delete(ctx, "3"); err == nil {
		t.Fatalf("expected floor rejection")
	}
	if !logger.has("info", "contact audit") || !logger.has("warn", "contact audit") {
		t.Fatalf("expected success at info and rejection at warn, got %+v", logger.entries)
	}
	NewLogAuditRecorder(nil).Record(ctx, AuditEntry{Status: AuditStatusError})
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	repo := newLoadedRepository(t, newFakeStore(), WithMetricsRecorder(rec))
	ctx := context.Background()
	if _, err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _ = repo.Delete(ctx, "2")
	_, _ = repo.Delete(ctx, "3")
	flush(t, repo)
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("delete", "success")); got != 2 {
		t.Fatalf("expected 2 successful deletes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("delete", "error")); got != 1 {
		t.Fatalf("expected 1 rejected delete, got %v", got)
	}
	if count := testutil.CollectAndCount(rec.durations); count == 0 {
		t.Fatalf("expected duration series")
	}
	rec.Observe(ctx, "", true, 0)
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	NewPrometheusMetricsRecorder(nil).Observe(ctx, "unregistered", true, time.Millisecond)
}

func TestMultiMetricsRecorder(t *testing.T) {
	a, b := &captureMetricsRecorder{}, &captureMetricsRecorder{}
	MultiMetricsRecorder{a, nil, b}.Observe(context.Background(), "add", true, 0)
	if !a.has("add", true) || !b.has("add", true) {
		t.Fatalf("expected fan out to every recorder")
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	repo := newLoadedRepository(t, newFakeStore(), WithTracer(NewOTelTracer(tp)))
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		_, _ = repo.Delete(ctx, id)
	}
	flush(t, repo)

	var sawLoad, sawRejected bool
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "contacts.load":
			sawLoad = span.Status().Code == codes.Ok
		case "contacts.delete":
			if span.Status().Code == codes.Error && len(span.Events()) > 0 {
				sawRejected = true
			}
		}
	}
	if !sawLoad || !sawRejected {
		t.Fatalf("expected ok load span and errored delete span")
	}
	if NewOTelTracer(nil) == nil {
		t.Fatalf("expected tracer from global provider")
	}
}
