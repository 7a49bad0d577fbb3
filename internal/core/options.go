package core

import (
	"time"

	"github.com/google/uuid"

	"lifeline/pkg/domain"
)

// Clock supplies timestamps for audit entries and durations.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc reports the system time.
type ClockFunc func() time.Time

// Now returns the current time in UTC.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// IDGenerator returns a new contact id.
type IDGenerator func() (string, error)

// NewUUIDv7 returns a time-ordered UUID string.
func NewUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Option configures a Repository.
type Option func(*repositoryOptions)

type repositoryOptions struct {
	clock        Clock
	logger       Logger
	metrics      MetricsRecorder
	tracer       Tracer
	audit        AuditRecorder
	ids          IDGenerator
	engine       *RulesEngine
	limits       domain.Limits
	key          string
	writeTimeout time.Duration
}

func defaultRepositoryOptions() repositoryOptions {
	return repositoryOptions{
		clock:   ClockFunc(nil),
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
		ids:     NewUUIDv7,
		engine:  NewDefaultRulesEngine(),
		limits:  domain.DefaultLimits(),
		key:     domain.DefaultStorageKey,
	}
}

// WithClock overrides the clock used for audit timestamps and durations.
func WithClock(clock Clock) Option {
	return func(o *repositoryOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger Logger) Option {
	return func(o *repositoryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder injects a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *repositoryOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer injects a tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *repositoryOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAuditRecorder injects an audit recorder.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(o *repositoryOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(o *repositoryOptions) {
		if gen != nil {
			o.ids = gen
		}
	}
}

// WithRulesEngine replaces the default rule set.
func WithRulesEngine(engine *RulesEngine) Option {
	return func(o *repositoryOptions) {
		if engine != nil {
			o.engine = engine
		}
	}
}

// WithLimits sets the list bounds. NewRepository rejects invalid limits.
func WithLimits(limits domain.Limits) Option {
	return func(o *repositoryOptions) {
		o.limits = limits
	}
}

// WithStorageKey overrides the key the list is stored under.
func WithStorageKey(key string) Option {
	return func(o *repositoryOptions) {
		if key != "" {
			o.key = key
		}
	}
}

// WithWriteTimeout bounds each background store write. Zero means no timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *repositoryOptions) {
		if d >= 0 {
			o.writeTimeout = d
		}
	}
}
