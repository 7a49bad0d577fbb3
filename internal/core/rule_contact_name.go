package core

import (
	"context"
	"fmt"

	"lifeline/pkg/domain"
)

// NewContactNameRule warns when a create or update stores a blank name.
// Blocking on blank names is left to the settings view.
func NewContactNameRule() domain.Rule {
	return contactNameRule{}
}

type contactNameRule struct{}

func (contactNameRule) Name() string { return domain.RuleContactName }

func (contactNameRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		c, ok := change.After.(domain.Contact)
		if !ok || c.HasName() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     domain.RuleContactName,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("contact %s has an empty name", c.ID),
			Entity:   domain.EntityContact,
			EntityID: c.ID,
		})
	}
	return res, nil
}
