package sections

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/misicnenad/fith-on/internal/program"
)

// Type enumerates the kinds of top-level items a user keeps.
type Type string

const (
	// TypeBlock marks a training block section.
	TypeBlock Type = "block"
	// TypeNote marks a freeform note section.
	TypeNote Type = "note"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidSectionID indicates that a section identifier is empty or exceeds storage bounds.
	ErrInvalidSectionID = errors.New("sections: invalid section id")
	// ErrInvalidUserKey indicates that a user key is empty or exceeds storage bounds.
	ErrInvalidUserKey = errors.New("sections: invalid user key")
	// ErrInvalidSection indicates a section whose payload does not match its type.
	ErrInvalidSection = errors.New("sections: invalid section")
	// ErrMissingNoteTitle indicates a note without a title.
	ErrMissingNoteTitle = errors.New("sections: note title required")
)

// SectionID represents a validated section identifier.
type SectionID string

// NewSectionID validates raw input and returns a SectionID.
func NewSectionID(rawInput string) (SectionID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSectionID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSectionID, maxIdentifierLength)
	}
	return SectionID(trimmed), nil
}

// String returns the underlying string identifier.
func (id SectionID) String() string {
	return string(id)
}

// UserKey represents a validated user key, typically an email address.
type UserKey string

// NewUserKey validates raw input and returns a UserKey.
func NewUserKey(rawInput string) (UserKey, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserKey)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserKey, maxIdentifierLength)
	}
	return UserKey(trimmed), nil
}

// String returns the underlying string key.
func (key UserKey) String() string {
	return string(key)
}

// Note is freeform text kept alongside blocks.
type Note struct {
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Section is a top-level user item. Exactly one of Block or Note is set, matching Type.
type Section struct {
	ID          SectionID      `json:"id" yaml:"id"`
	DateCreated int64          `json:"dateCreated" yaml:"dateCreated"`
	Type        Type           `json:"type" yaml:"type"`
	Block       *program.Block `json:"-" yaml:"block,omitempty"`
	Note        *Note          `json:"-" yaml:"note,omitempty"`
}

// NewBlockSection wraps a generated block in a section awaiting id assignment.
func NewBlockSection(block program.Block) Section {
	copied := block
	return Section{Type: TypeBlock, Block: &copied}
}

// NewNoteSection wraps a note in a section awaiting id assignment.
func NewNoteSection(title, text string) Section {
	return Section{Type: TypeNote, Note: &Note{Title: title, Text: text}}
}

// CreatedAt returns DateCreated as a time value.
func (s Section) CreatedAt() time.Time {
	return time.UnixMilli(s.DateCreated)
}

// Validate checks identifiers and that the payload matches the section type.
func (s Section) Validate() error {
	if _, err := NewSectionID(s.ID.String()); err != nil {
		return err
	}
	if s.DateCreated <= 0 {
		return fmt.Errorf("%w: missing creation date", ErrInvalidSection)
	}
	return s.ValidateContent()
}

// ValidateContent checks the payload only; identifiers may still be unassigned.
func (s Section) ValidateContent() error {
	switch s.Type {
	case TypeBlock:
		if s.Block == nil || s.Note != nil {
			return fmt.Errorf("%w: block section payload mismatch", ErrInvalidSection)
		}
		if err := s.Block.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSection, err)
		}
	case TypeNote:
		if s.Note == nil || s.Block != nil {
			return fmt.Errorf("%w: note section payload mismatch", ErrInvalidSection)
		}
		if strings.TrimSpace(s.Note.Title) == "" {
			return ErrMissingNoteTitle
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSection, s.Type)
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias engine-owned data.
func (s Section) Clone() Section {
	cloned := s
	if s.Block != nil {
		block := program.Block{Number: s.Block.Number, Weeks: make([]program.Week, len(s.Block.Weeks))}
		for index, week := range s.Block.Weeks {
			exercises := make([]program.Exercise, len(week.Exercises))
			copy(exercises, week.Exercises)
			block.Weeks[index] = program.Week{Number: week.Number, Exercises: exercises}
		}
		cloned.Block = &block
	}
	if s.Note != nil {
		note := *s.Note
		cloned.Note = &note
	}
	return cloned
}

// Newer reports whether a sorts before b: newest first, ties broken by id descending.
func Newer(a, b Section) bool {
	if a.DateCreated != b.DateCreated {
		return a.DateCreated > b.DateCreated
	}
	return a.ID > b.ID
}

// Sort orders sections newest first in place.
func Sort(items []Section) {
	sort.SliceStable(items, func(i, j int) bool {
		return Newer(items[i], items[j])
	})
}

// CloneAll deep copies a slice of sections.
func CloneAll(items []Section) []Section {
	if items == nil {
		return nil
	}
	cloned := make([]Section, len(items))
	for index, item := range items {
		cloned[index] = item.Clone()
	}
	return cloned
}

// LatestBlock returns the newest block section in a sorted collection.
func LatestBlock(items []Section) (Section, bool) {
	for _, item := range items {
		if item.Type == TypeBlock && item.Block != nil {
			return item, true
		}
	}
	return Section{}, false
}
