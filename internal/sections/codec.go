package sections

import (
	"encoding/json"
	"fmt"

	"github.com/misicnenad/fith-on/internal/program"
)

// wireSection is the flattened document shape shared with the persistence service.
type wireSection struct {
	ID          SectionID      `json:"id"`
	DateCreated int64          `json:"dateCreated"`
	Type        Type           `json:"type"`
	Number      *int           `json:"number,omitempty"`
	Weeks       []program.Week `json:"weeks,omitempty"`
	Title       *string        `json:"title,omitempty"`
	Text        *string        `json:"text,omitempty"`
}

// MarshalJSON flattens the block or note payload next to the section fields.
func (s Section) MarshalJSON() ([]byte, error) {
	wire := wireSection{
		ID:          s.ID,
		DateCreated: s.DateCreated,
		Type:        s.Type,
	}
	if s.Block != nil {
		number := s.Block.Number
		wire.Number = &number
		wire.Weeks = s.Block.Weeks
	}
	if s.Note != nil {
		title := s.Note.Title
		text := s.Note.Text
		wire.Title = &title
		wire.Text = &text
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores the typed payload from the flattened document.
func (s *Section) UnmarshalJSON(data []byte) error {
	var wire wireSection
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	decoded := Section{
		ID:          wire.ID,
		DateCreated: wire.DateCreated,
		Type:        wire.Type,
	}
	switch wire.Type {
	case TypeBlock:
		block := program.Block{Weeks: wire.Weeks}
		if wire.Number != nil {
			block.Number = *wire.Number
		}
		decoded.Block = &block
	case TypeNote:
		note := Note{}
		if wire.Title != nil {
			note.Title = *wire.Title
		}
		if wire.Text != nil {
			note.Text = *wire.Text
		}
		decoded.Note = &note
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSection, wire.Type)
	}

	*s = decoded
	return nil
}

// EncodePayload serializes a section for storage.
func EncodePayload(section Section) (string, error) {
	encoded, err := json.Marshal(section)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// DecodePayload restores a stored section.
func DecodePayload(payload string) (Section, error) {
	var section Section
	if err := json.Unmarshal([]byte(payload), &section); err != nil {
		return Section{}, err
	}
	return section, nil
}
