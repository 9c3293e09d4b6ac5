package users

import "errors"

var (
	ErrInvalidID    = errors.New("invalid user id")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	ErrSigning      = errors.New("signing failed")
	ErrExport       = errors.New("export failed")
)

// ValidationError lleva el mensaje agregado de validation.Result.
type ValidationError struct {
	Messages []string
	Message  string
}

func (e *ValidationError) Error() string { return e.Message }
