// Package core holds the contact list repository: the in-memory list, its
// load and write-through persistence, and the rules checked on every mutation.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lifeline/pkg/domain"
)

// LoadOutcome describes where the list came from when loading finished.
type LoadOutcome string

const (
	// LoadOutcomeStored means a usable list was read from the store.
	LoadOutcomeStored LoadOutcome = "stored"
	// LoadOutcomeSeeded means nothing (or an empty list) was stored and defaults were written.
	LoadOutcomeSeeded LoadOutcome = "seeded"
	// LoadOutcomeRecovered means the stored payload was unreadable and defaults were written over it.
	LoadOutcomeRecovered LoadOutcome = "recovered"
	// LoadOutcomeFallback means the store read failed; defaults are used and written.
	LoadOutcomeFallback LoadOutcome = "fallback"
)

const maxIDAttempts = 8

// Repository owns the emergency contact list for the lifetime of the process.
// Mutations are validated and applied under a single mutex; store writes run
// in the background and never block callers.
type Repository struct {
	store  domain.KVStore
	opts   repositoryOptions
	writer *persister
	subs   subscribers

	mu       sync.Mutex
	contacts []domain.Contact
	loading  bool

	loadOnce sync.Once
	ready    chan struct{}
	outcome  LoadOutcome
}

// NewRepository constructs a repository over store. The list stays empty and
// mutations fail with domain.ErrNotReady until Load or Initialize completes.
func NewRepository(store domain.KVStore, opts ...Option) (*Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("contact store is required")
	}
	o := defaultRepositoryOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}
	return &Repository{
		store:   store,
		opts:    o,
		writer:  newPersister(store, o),
		loading: true,
		ready:   make(chan struct{}),
	}, nil
}

// Initialize starts loading in the background and returns immediately.
// Use Ready to wait for completion.
func (r *Repository) Initialize(ctx context.Context) {
	go r.Load(context.WithoutCancel(ctx))
}

// Load reads the stored list, falling back to the defaults, and returns how the
// list was obtained. Only the first call does any work; later calls return the
// first outcome.
func (r *Repository) Load(ctx context.Context) LoadOutcome {
	r.loadOnce.Do(func() { r.load(ctx) })
	return r.outcome
}

// Ready is closed once loading has finished.
func (r *Repository) Ready() <-chan struct{} {
	return r.ready
}

func (r *Repository) load(ctx context.Context) {
	ctx, span := r.opts.tracer.Start(ctx, "load")
	start := r.opts.clock.Now()
	contacts, outcome, persist, loadErr := r.readStored(ctx)

	r.mu.Lock()
	r.contacts = contacts
	r.loading = false
	r.outcome = outcome
	if persist {
		r.schedulePersist(contacts)
	}
	snapshot := cloneContacts(contacts)
	r.subs.enqueue(Event{Kind: EventLoaded, Contacts: snapshot})
	r.mu.Unlock()
	close(r.ready)

	r.opts.metrics.Observe(ctx, "load", loadErr == nil, r.opts.clock.Now().Sub(start))
	span.End(loadErr)
	r.opts.logger.Info("contacts loaded", "key", r.opts.key, "outcome", string(outcome), "count", len(snapshot))
	r.subs.deliver()
}

func (r *Repository) readStored(ctx context.Context) ([]domain.Contact, LoadOutcome, bool, error) {
	raw, found, err := r.store.Read(ctx, r.opts.key)
	if err != nil {
		r.opts.logger.Warn("read stored contacts failed, using defaults", "key", r.opts.key, "error", err)
		return domain.DefaultContacts(), LoadOutcomeFallback, true, fmt.Errorf("read contacts: %w", err)
	}
	if !found {
		return domain.DefaultContacts(), LoadOutcomeSeeded, true, nil
	}
	decoded, err := decodeContacts(raw)
	if err != nil {
		r.opts.logger.Warn("stored contacts unreadable, restoring defaults", "key", r.opts.key, "bytes", len(raw), "error", err)
		return domain.DefaultContacts(), LoadOutcomeRecovered, true, err
	}
	if len(decoded) == 0 {
		return domain.DefaultContacts(), LoadOutcomeSeeded, true, nil
	}
	repaired, changed, err := r.repairIDs(decoded)
	if err != nil {
		r.opts.logger.Warn("repair stored contact ids failed, restoring defaults", "key", r.opts.key, "error", err)
		return domain.DefaultContacts(), LoadOutcomeRecovered, true, err
	}
	if changed {
		r.opts.logger.Info("stored contacts repaired", "key", r.opts.key, "stored", len(decoded), "kept", len(repaired))
	}
	return repaired, LoadOutcomeStored, changed, nil
}

// repairIDs drops records repeating an earlier id and gives records without an id a fresh one.
func (r *Repository) repairIDs(in []domain.Contact) ([]domain.Contact, bool, error) {
	taken := make(map[string]struct{}, len(in))
	for _, c := range in {
		if c.ID != "" {
			taken[c.ID] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Contact, 0, len(in))
	changed := false
	for _, c := range in {
		if c.ID == "" {
			id, err := r.newID(taken)
			if err != nil {
				return nil, false, err
			}
			c.ID = id
			taken[id] = struct{}{}
			changed = true
		}
		if _, dup := seen[c.ID]; dup {
			changed = true
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, changed, nil
}

func (r *Repository) newID(taken map[string]struct{}) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := r.opts.ids()
		if err != nil {
			return "", fmt.Errorf("generate contact id: %w", err)
		}
		if id == "" {
			continue
		}
		if _, exists := taken[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate contact id: no unique id after %d attempts", maxIDAttempts)
}

// schedulePersist hands the list to the background writer. Callers hold r.mu
// so snapshots are queued in mutation order.
func (r *Repository) schedulePersist(contacts []domain.Contact) {
	payload, err := encodeContacts(contacts)
	if err != nil {
		r.opts.logger.Error("encode contacts failed", "error", err)
		return
	}
	r.writer.enqueue(payload)
}

type mutation func(current []domain.Contact) ([]domain.Contact, []domain.Change, error)

func (r *Repository) apply(ctx context.Context, op string, action domain.Action, entityID string, kind EventKind, m mutation) (changes []domain.Change, err error) {
	ctx, span := r.opts.tracer.Start(ctx, op)
	start := r.opts.clock.Now()
	defer func() {
		duration := r.opts.clock.Now().Sub(start)
		r.opts.metrics.Observe(ctx, op, err == nil, duration)
		r.recordAudit(ctx, op, action, auditEntityID(entityID, changes), duration, err)
		span.End(err)
	}()

	r.mu.Lock()
	if r.loading {
		r.mu.Unlock()
		return nil, domain.ErrNotReady
	}
	next, changes, err := m(cloneContacts(r.contacts))
	if err != nil || len(changes) == 0 {
		r.mu.Unlock()
		return nil, err
	}
	res, err := r.opts.engine.Evaluate(ctx, contactView{contacts: next, limits: r.opts.limits}, changes)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}
	if res.HasBlocking() {
		r.mu.Unlock()
		r.opts.logger.Info("contact mutation rejected", "operation", op, "error", domain.RuleViolationError{Result: res}.Error())
		return nil, domain.RuleViolationError{Result: res}
	}
	r.contacts = next
	r.schedulePersist(next)
	r.subs.enqueue(Event{Kind: kind, Contacts: cloneContacts(next), Changes: changes})
	r.mu.Unlock()

	for _, v := range res.Violations {
		r.opts.logger.Warn("contact rule violation", "rule", v.Rule, "severity", string(v.Severity), "contact_id", v.EntityID, "message", v.Message)
	}
	r.subs.deliver()
	return changes, nil
}

func auditEntityID(fallback string, changes []domain.Change) string {
	for _, change := range changes {
		if id := contactID(change.After); id != "" {
			return id
		}
		if id := contactID(change.Before); id != "" {
			return id
		}
	}
	return fallback
}

func (r *Repository) recordAudit(ctx context.Context, op string, action domain.Action, entityID string, duration time.Duration, err error) {
	entry := AuditEntry{
		Operation: op,
		Entity:    domain.EntityContact,
		Action:    action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: r.opts.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	r.opts.audit.Record(ctx, entry)
}

// Add appends a new contact with a fresh id. The name is not validated here.
// When the list is full the error matches domain.ErrCapacity.
func (r *Repository) Add(ctx context.Context, draft domain.ContactDraft) (domain.Contact, error) {
	var created domain.Contact
	_, err := r.apply(ctx, "add", domain.ActionCreate, "", EventAdded, func(current []domain.Contact) ([]domain.Contact, []domain.Change, error) {
		taken := make(map[string]struct{}, len(current))
		for _, c := range current {
			taken[c.ID] = struct{}{}
		}
		id, err := r.newID(taken)
		if err != nil {
			return nil, nil, err
		}
		created = domain.Contact{ID: id, Name: draft.Name, PhoneNumber: draft.PhoneNumber, IconName: draft.IconName}
		change := domain.Change{Entity: domain.EntityContact, Action: domain.ActionCreate, After: created}
		return append(current, created), []domain.Change{change}, nil
	})
	if err != nil {
		return domain.Contact{}, err
	}
	return created, nil
}

// Update applies the supplied fields to the contact with id. Unknown ids and
// patches that change nothing are silent no-ops reporting changed=false; for an
// unknown id the returned contact is the zero value.
func (r *Repository) Update(ctx context.Context, id string, patch domain.ContactPatch) (domain.Contact, bool, error) {
	var updated domain.Contact
	changes, err := r.apply(ctx, "update", domain.ActionUpdate, id, EventUpdated, func(current []domain.Contact) ([]domain.Contact, []domain.Change, error) {
		idx := indexOf(current, id)
		if idx < 0 {
			return current, nil, nil
		}
		before := current[idx]
		after := before
		if !patch.Apply(&after) {
			updated = before
			return current, nil, nil
		}
		current[idx] = after
		updated = after
		change := domain.Change{Entity: domain.EntityContact, Action: domain.ActionUpdate, Before: before, After: after}
		return current, []domain.Change{change}, nil
	})
	if err != nil {
		return domain.Contact{}, false, err
	}
	return updated, len(changes) > 0, nil
}

// Delete removes the contact with id, keeping the order of the rest. Unknown
// ids are a no-op. At the floor the error matches domain.ErrCapacity.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	changes, err := r.apply(ctx, "delete", domain.ActionDelete, id, EventDeleted, func(current []domain.Contact) ([]domain.Contact, []domain.Change, error) {
		idx := indexOf(current, id)
		if idx < 0 {
			return current, nil, nil
		}
		removed := current[idx]
		next := append(current[:idx:idx], current[idx+1:]...)
		change := domain.Change{Entity: domain.EntityContact, Action: domain.ActionDelete, Before: removed}
		return next, []domain.Change{change}, nil
	})
	if err != nil {
		return false, err
	}
	return len(changes) > 0, nil
}

func indexOf(contacts []domain.Contact, id string) int {
	for i, c := range contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Contacts returns a copy of the list in display order.
func (r *Repository) Contacts() []domain.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneContacts(r.contacts)
}

// Contact looks up a single contact by id.
func (r *Repository) Contact(id string) (domain.Contact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := indexOf(r.contacts, id); idx >= 0 {
		return r.contacts[idx], true
	}
	return domain.Contact{}, false
}

// IsLoading reports whether the initial load is still in progress.
func (r *Repository) IsLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Limits returns the configured list bounds.
func (r *Repository) Limits() domain.Limits {
	return r.opts.limits
}

// StorageKey returns the key the list is persisted under.
func (r *Repository) StorageKey() string {
	return r.opts.key
}

// Subscribe registers fn for every loaded/added/updated/deleted event and
// returns a function that removes it. fn runs after the change is applied,
// without repository locks held, and sees events in mutation order. It usually
// runs on the mutating goroutine; while another goroutine is delivering, that
// goroutine delivers the event instead.
func (r *Repository) Subscribe(fn func(Event)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return r.subs.add(fn)
}

// Flush waits until every scheduled write has been attempted.
func (r *Repository) Flush(ctx context.Context) error {
	return r.writer.flush(ctx)
}

// PersistStats reports how many background writes succeeded and failed.
func (r *Repository) PersistStats() PersistStats {
	return r.writer.stats()
}
