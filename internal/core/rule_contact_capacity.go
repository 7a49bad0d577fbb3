package core

import (
	"context"
	"fmt"

	"lifeline/pkg/domain"
)

// NewContactCapacityRule returns the rule keeping the list size within its limits.
// Only creates and deletes are checked, so a list loaded out of range can still be edited.
func NewContactCapacityRule() domain.Rule {
	return contactCapacityRule{}
}

type contactCapacityRule struct{}

func (contactCapacityRule) Name() string { return domain.RuleContactCapacity }

func (contactCapacityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	limits := view.Limits()
	size := len(view.ListContacts())
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityContact {
			continue
		}
		switch change.Action {
		case domain.ActionCreate:
			if size > limits.Max {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     domain.RuleContactCapacity,
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("Maximum of %d contacts allowed", limits.Max),
					Entity:   domain.EntityContact,
					EntityID: contactID(change.After),
				})
			}
		case domain.ActionDelete:
			if limits.EnforceMin && size < limits.Min {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     domain.RuleContactCapacity,
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("Minimum of %d contacts required", limits.Min),
					Entity:   domain.EntityContact,
					EntityID: contactID(change.Before),
				})
			}
		}
	}
	return res, nil
}

func contactID(v any) string {
	if c, ok := v.(domain.Contact); ok {
		return c.ID
	}
	return ""
}
