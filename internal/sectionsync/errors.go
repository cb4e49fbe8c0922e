package sectionsync

import (
	"errors"
	"fmt"
)

const (
	opLoad           = "load"
	opAdd            = "add"
	opRemove         = "remove"
	opUpdate         = "update"
	opUpdateExercise = "update_exercise"
)

var alertMessages = map[string]string{
	opLoad:           "Error getting data",
	opAdd:            "Error adding section",
	opRemove:         "Error removing section",
	opUpdate:         "Error updating section",
	opUpdateExercise: "Error updating section",
}

var (
	// ErrOffline reports that the network observer considers the client offline.
	ErrOffline = errors.New("sectionsync: offline")
	// ErrNoIdentity reports that no user is signed in.
	ErrNoIdentity = errors.New("sectionsync: no user identity")
	// ErrUnknownSection reports a section id that is not in the local collection.
	ErrUnknownSection = errors.New("sectionsync: unknown section")
	// ErrNotABlock reports an exercise edit aimed at a non-block section.
	ErrNotABlock = errors.New("sectionsync: section is not a block")
	// ErrTypeChanged reports an update that would turn a block into a note or back.
	ErrTypeChanged = errors.New("sectionsync: section type cannot change")

	errMissingStore    = errors.New("store dependency required")
	errMissingNetwork  = errors.New("network dependency required")
	errMissingIdentity = errors.New("identity dependency required")
)

// OperationError wraps a failure that has already been logged and alerted.
type OperationError struct {
	Operation string
	UserKey   string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("sectionsync: %s failed for %s: %v", e.Operation, e.UserKey, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
