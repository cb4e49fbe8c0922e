package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSection indicates an add for an id the user already owns.
	ErrDuplicateSection = errors.New("store: duplicate section")
	// ErrSectionTypeChanged indicates an update that would change a section's type.
	ErrSectionTypeChanged = errors.New("store: section type cannot change")
	// ErrInvalidFailureLog indicates a failure report without an operation.
	ErrInvalidFailureLog = errors.New("store: invalid failure log")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

// ServiceError carries a stable "operation.reason" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *ServiceError) Code() string {
	return e.code
}

// NewServiceError builds a ServiceError with code operation.reason.
func NewServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

const (
	OpServiceNew     = "sections.service.new"
	OpGetSections    = "sections.get"
	OpAddSection     = "sections.add"
	OpRemoveSection  = "sections.remove"
	OpUpdateSection  = "sections.update"
	OpListChanges    = "sections.changes"
	OpLogFailure     = "failures.log"
	OpListFailureLog = "failures.list"
)
