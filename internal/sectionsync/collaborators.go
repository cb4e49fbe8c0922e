package sectionsync

import (
	"context"

	"github.com/misicnenad/fith-on/internal/sections"
)

// Store is the remote persistence service holding each user's sections.
type Store interface {
	GetSections(ctx context.Context, userKey string) ([]sections.Section, error)
	AddSection(ctx context.Context, userKey string, section sections.Section) error
	RemoveSection(ctx context.Context, userKey string, sectionID sections.SectionID) error
	UpdateSection(ctx context.Context, userKey string, section sections.Section) error
}

// Network reports connectivity and notifies when it comes back.
type Network interface {
	IsOffline() bool
	OnBecomingOnline(callback func())
}

// Identity exposes the signed-in user's key; an empty key means signed out.
type Identity interface {
	UserKey() string
}

// FailureLog records failed operations. Implementations must not block or panic.
type FailureLog interface {
	Log(userKey, operation string, err error)
}

// Alerter surfaces a short message to the user.
type Alerter interface {
	Alert(message string)
}

// Cache keeps the last known collection so it can be shown before the first load.
type Cache interface {
	Load(ctx context.Context, userKey string) ([]sections.Section, error)
	Save(ctx context.Context, userKey string, items []sections.Section) error
}

// IDProvider issues section identifiers.
type IDProvider = sections.IDProvider

// StaticIdentity is an Identity with a fixed key.
type StaticIdentity string

// UserKey returns the fixed key.
func (s StaticIdentity) UserKey() string {
	return string(s)
}

type discardFailures struct{}

func (discardFailures) Log(string, string, error) {}

type discardAlerts struct{}

func (discardAlerts) Alert(string) {}
