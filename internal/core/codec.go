package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"lifeline/pkg/domain"
)

// encodeContacts serializes the list as a flat JSON array.
func encodeContacts(contacts []domain.Contact) ([]byte, error) {
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	b, err := json.Marshal(contacts)
	if err != nil {
		return nil, fmt.Errorf("encode contacts: %w", err)
	}
	return b, nil
}

// decodeContacts parses a stored payload. Blank input, null and [] all decode to an empty list.
func decodeContacts(raw []byte) ([]domain.Contact, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var contacts []domain.Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return contacts, nil
}

func cloneContacts(in []domain.Contact) []domain.Contact {
	if in == nil {
		return nil
	}
	out := make([]domain.Contact, len(in))
	copy(out, in)
	return out
}
