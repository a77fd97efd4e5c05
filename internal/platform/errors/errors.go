package apperrors

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrNoActiveSession    = errors.New("no active session")
	ErrConcurrentSession  = errors.New("a focus session is already active")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrStateCorruption    = errors.New("state corruption")
	ErrCatalogIndex       = errors.New("boss catalog index out of range")
)

// IsWarning reports whether err only signals a failed durable write. The
// in-memory state it accompanies has been applied.
func IsWarning(err error) bool {
	return err != nil && errors.Is(err, ErrPersistenceFailure)
}

// Warning renders a non-fatal error for output DTOs and passes fatal ones through.
func Warning(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if IsWarning(err) {
		return err.Error(), nil
	}
	return "", err
}
