package core

import "lifeline/pkg/domain"

type (
	Rule        = domain.Rule
	RulesEngine = domain.RulesEngine
	Result      = domain.Result
	Change      = domain.Change
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in contact list policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewContactCapacityRule())
	engine.Register(NewContactIdentityRule())
	engine.Register(NewContactNameRule())
	return engine
}

// contactView is the post-mutation list handed to rules.
type contactView struct {
	contacts []domain.Contact
	limits   domain.Limits
}

func (v contactView) ListContacts() []domain.Contact {
	return cloneContacts(v.contacts)
}

func (v contactView) FindContact(id string) (domain.Contact, bool) {
	for _, c := range v.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Contact{}, false
}

func (v contactView) Limits() domain.Limits { return v.limits }
