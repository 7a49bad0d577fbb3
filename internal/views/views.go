// Package views holds the presentation-side consumers of the contact
// repository: the dial dashboard and the settings editor.
package views

import (
	"context"

	"lifeline/internal/core"
	"lifeline/pkg/domain"
)

// ContactSource is the read side of the repository.
type ContactSource interface {
	Contacts() []domain.Contact
	Contact(id string) (domain.Contact, bool)
	Subscribe(fn func(core.Event)) (cancel func())
}

// ContactEditor is the write side of the repository used by Settings.
type ContactEditor interface {
	ContactSource
	Add(ctx context.Context, draft domain.ContactDraft) (domain.Contact, error)
	Update(ctx context.Context, id string, patch domain.ContactPatch) (domain.Contact, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Dialer places a call to a number.
type Dialer interface {
	Dial(ctx context.Context, number string) error
}

var _ ContactEditor = (*core.Repository)(nil)
