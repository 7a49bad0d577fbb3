package core

import (
	"context"
	"sync"
	"time"

	"lifeline/pkg/domain"
)

// persister writes list snapshots on a single background goroutine. Only the
// newest pending snapshot is kept, so writes land in mutation order and a
// superseded snapshot is never written after a newer one.
type persister struct {
	store   domain.KVStore
	key     string
	timeout time.Duration
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock

	mu         sync.Mutex
	pending    []byte
	hasPending bool
	running    bool
	idle       chan struct{}
	written    uint64
	failed     uint64
}

func newPersister(store domain.KVStore, opts repositoryOptions) *persister {
	return &persister{
		store:   store,
		key:     opts.key,
		timeout: opts.writeTimeout,
		logger:  opts.logger,
		metrics: opts.metrics,
		tracer:  opts.tracer,
		clock:   opts.clock,
	}
}

// enqueue schedules payload and returns without waiting for the write.
func (p *persister) enqueue(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = payload
	p.hasPending = true
	if p.running {
		return
	}
	p.running = true
	p.idle = make(chan struct{})
	go p.run()
}

func (p *persister) run() {
	for {
		p.mu.Lock()
		if !p.hasPending {
			p.running = false
			close(p.idle)
			p.mu.Unlock()
			return
		}
		payload := p.pending
		p.pending = nil
		p.hasPending = false
		p.mu.Unlock()

		err := p.write(payload)

		p.mu.Lock()
		if err != nil {
			p.failed++
		} else {
			p.written++
		}
		p.mu.Unlock()
	}
}

func (p *persister) write(payload []byte) (err error) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	ctx, span := p.tracer.Start(ctx, "persist")
	start := p.clock.Now()
	defer func() {
		p.metrics.Observe(ctx, "persist", err == nil, p.clock.Now().Sub(start))
		span.End(err)
	}()
	if err = p.store.Write(ctx, p.key, payload); err != nil {
		p.logger.Error("persist contacts failed", "key", p.key, "bytes", len(payload), "error", err)
		return err
	}
	p.logger.Debug("contacts persisted", "key", p.key, "bytes", len(payload))
	return nil
}

// flush blocks until no write is pending or running, or ctx is done.
func (p *persister) flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		if !p.running {
			p.mu.Unlock()
			return nil
		}
		idle := p.idle
		p.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PersistStats counts background write outcomes.
type PersistStats struct {
	Written uint64
	Failed  uint64
}

func (p *persister) stats() PersistStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PersistStats{Written: p.written, Failed: p.failed}
}
