package views

import (
	"context"
	"errors"
	"strings"

	"lifeline/pkg/domain"
)

// NewContactName prefills the name of a contact being added.
const NewContactName = "New Contact"

// ValidationError is returned by Settings.Save before the repository is called.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// ErrEmptyName is the validation failure for a blank contact name.
var ErrEmptyName = ValidationError{Field: "name", Message: "Contact name cannot be empty"}

// ErrContactNotFound is returned by Save when the contact being edited no longer exists.
var ErrContactNotFound = errors.New("contact not found")

// Buffer holds the fields being edited. ID is empty while adding.
type Buffer struct {
	ID          string
	Name        string
	PhoneNumber string
	IconName    string
}

// Adding reports whether the buffer is for a new contact.
func (b Buffer) Adding() bool { return b.ID == "" }

// Settings edits the contact list.
type Settings struct {
	repo ContactEditor
}

// NewSettings returns the editor over repo.
func NewSettings(repo ContactEditor) *Settings {
	return &Settings{repo: repo}
}

// Contacts returns the list in display order.
func (s *Settings) Contacts() []domain.Contact {
	return s.repo.Contacts()
}

// BeginAdd returns a buffer prefilled for a new contact.
func (s *Settings) BeginAdd() Buffer {
	return Buffer{Name: NewContactName, IconName: domain.IconPerson}
}

// BeginEdit returns a buffer with the current values of the contact with id.
func (s *Settings) BeginEdit(id string) (Buffer, bool) {
	c, ok := s.repo.Contact(id)
	if !ok {
		return Buffer{}, false
	}
	return Buffer{ID: c.ID, Name: c.Name, PhoneNumber: c.PhoneNumber, IconName: c.IconName}, true
}

// Save validates buf and adds or updates the contact. The name is stored as
// entered; only a blank name is rejected.
func (s *Settings) Save(ctx context.Context, buf Buffer) (domain.Contact, error) {
	if strings.TrimSpace(buf.Name) == "" {
		return domain.Contact{}, ErrEmptyName
	}
	if buf.Adding() {
		return s.repo.Add(ctx, domain.ContactDraft{Name: buf.Name, PhoneNumber: buf.PhoneNumber, IconName: buf.IconName})
	}
	c, changed, err := s.repo.Update(ctx, buf.ID, domain.ContactPatch{
		Name:        &buf.Name,
		PhoneNumber: &buf.PhoneNumber,
		IconName:    &buf.IconName,
	})
	if err != nil {
		return domain.Contact{}, err
	}
	// Update reports unknown ids as an unchanged zero contact.
	if !changed && c.ID == "" {
		return domain.Contact{}, ErrContactNotFound
	}
	return c, nil
}

// Delete removes the contact with id.
func (s *Settings) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Delete(ctx, id)
	return err
}

// IconOptions lists the icons offered by the picker.
func (s *Settings) IconOptions() []string {
	return domain.SelectableIcons()
}

// Notice is a modal message shown to the user.
type Notice struct {
	Title   string
	Message string
}

// NoticeFor maps an error from Save or Delete to the notice to display.
// ok is false for a nil error.
func NoticeFor(err error) (Notice, bool) {
	if err == nil {
		return Notice{}, false
	}
	var validation ValidationError
	if errors.As(err, &validation) {
		return Notice{Title: "Error", Message: validation.Message}, true
	}
	if errors.Is(err, ErrContactNotFound) {
		return Notice{Title: "Error", Message: "Contact not found"}, true
	}
	if errors.Is(err, domain.ErrNotReady) {
		return Notice{Title: "Please wait", Message: "Loading contacts..."}, true
	}
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		if blocking := violation.Result.Blocking(); len(blocking) > 0 {
			return Notice{Title: "Error", Message: blocking[0].Message}, true
		}
	}
	return Notice{Title: "Error", Message: err.Error()}, true
}
