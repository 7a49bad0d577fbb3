package core

import (
	"context"
	"fmt"

	"lifeline/pkg/domain"
)

// NewContactIdentityRule blocks lists with empty or repeated ids.
func NewContactIdentityRule() domain.Rule {
	return contactIdentityRule{}
}

type contactIdentityRule struct{}

func (contactIdentityRule) Name() string { return domain.RuleContactIdentity }

func (contactIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	seen := make(map[string]struct{})
	for i, c := range view.ListContacts() {
		if c.ID == "" {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     domain.RuleContactIdentity,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("contact at position %d has no id", i),
				Entity:   domain.EntityContact,
			})
			continue
		}
		if _, dup := seen[c.ID]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     domain.RuleContactIdentity,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("duplicate contact id %s", c.ID),
				Entity:   domain.EntityContact,
				EntityID: c.ID,
			})
			continue
		}
		seen[c.ID] = struct{}{}
	}
	return res, nil
}
