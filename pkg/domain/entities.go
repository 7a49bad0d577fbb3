// Package domain defines the emergency contact entities, value types, and
// rule evaluation primitives used by lifeline.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// EntityContact identifies an emergency contact record.
const EntityContact EntityType = "contact"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Contact is a single dialable entry of the emergency list.
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	IconName    string `json:"iconName"`
}

// Dialable reports whether the contact has a number to call.
func (c Contact) Dialable() bool {
	return c.PhoneNumber != ""
}

// HasName reports whether the name is non-empty after trimming whitespace.
func (c Contact) HasName() bool {
	return strings.TrimSpace(c.Name) != ""
}

// ContactDraft carries the fields of a contact that has not been assigned an id yet.
type ContactDraft struct {
	Name        string
	PhoneNumber string
	IconName    string
}

// ContactPatch lists the fields to change on an existing contact. Nil fields are left untouched.
type ContactPatch struct {
	Name        *string
	PhoneNumber *string
	IconName    *string
}

// Empty reports whether the patch supplies no fields.
func (p ContactPatch) Empty() bool {
	return p.Name == nil && p.PhoneNumber == nil && p.IconName == nil
}

// Apply writes the supplied fields onto c and reports whether any value changed.
func (p ContactPatch) Apply(c *Contact) bool {
	changed := false
	if p.Name != nil && *p.Name != c.Name {
		c.Name = *p.Name
		changed = true
	}
	if p.PhoneNumber != nil && *p.PhoneNumber != c.PhoneNumber {
		c.PhoneNumber = *p.PhoneNumber
		changed = true
	}
	if p.IconName != nil && *p.IconName != c.IconName {
		c.IconName = *p.IconName
		changed = true
	}
	return changed
}

// Default list bounds.
const (
	DefaultMinContacts = 4
	DefaultMaxContacts = 8
)

// Limits bounds the size of the contact list.
type Limits struct {
	Min int
	Max int
	// EnforceMin rejects deletes that would take the list below Min.
	EnforceMin bool
}

// DefaultLimits returns the 4..8 bounds with the floor enforced.
func DefaultLimits() Limits {
	return Limits{Min: DefaultMinContacts, Max: DefaultMaxContacts, EnforceMin: true}
}

// Validate checks that the bounds are usable for a list seeded with DefaultContacts.
func (l Limits) Validate() error {
	if l.Min < 0 {
		return fmt.Errorf("min contacts must not be negative, got %d", l.Min)
	}
	if l.Max < 1 {
		return fmt.Errorf("max contacts must be positive, got %d", l.Max)
	}
	if l.Max < l.Min {
		return fmt.Errorf("max contacts %d below min contacts %d", l.Max, l.Min)
	}
	n := len(DefaultContacts())
	if l.Max < n {
		return fmt.Errorf("max contacts %d below default list size %d", l.Max, n)
	}
	if l.Min > n {
		return fmt.Errorf("min contacts %d above default list size %d", l.Min, n)
	}
	return nil
}

// DefaultContacts returns the built-in list used on first start or when the stored list is unusable.
func DefaultContacts() []Contact {
	return []Contact{
		{ID: "1", Name: "Police", PhoneNumber: "911", IconName: IconShield},
		{ID: "2", Name: "Fire", PhoneNumber: "911", IconName: IconFlame},
		{ID: "3", Name: "Ambulance", PhoneNumber: "911", IconName: IconMedkit},
		{ID: "4", Name: "Family", PhoneNumber: "", IconName: IconPeople},
		{ID: "5", Name: "Doctor", PhoneNumber: "", IconName: IconMedical},
		{ID: "6", Name: "Neighbor", PhoneNumber: "", IconName: IconHome},
	}
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns only the blocking violations.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// Rule names of the built-in rules.
const (
	RuleContactCapacity = "contact_capacity"
	RuleContactIdentity = "contact_identity"
	RuleContactName     = "contact_name"
)

var (
	// ErrCapacity matches rule violations raised by the capacity rule.
	ErrCapacity = errors.New("contact list capacity reached")
	// ErrNotReady is returned by mutations issued before the list finished loading.
	ErrNotReady = errors.New("contact list is still loading")
)

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := e.Result.Blocking()
	if len(blocking) == 0 {
		return "transaction blocked by rules"
	}
	msgs := make([]string, 0, len(blocking))
	for _, v := range blocking {
		msgs = append(msgs, v.Message)
	}
	return "transaction blocked by rules: " + strings.Join(msgs, "; ")
}

// Is matches ErrCapacity when a blocking violation came from the capacity rule.
func (e RuleViolationError) Is(target error) bool {
	if target != ErrCapacity {
		return false
	}
	for _, v := range e.Result.Blocking() {
		if v.Rule == RuleContactCapacity {
			return true
		}
	}
	return false
}
