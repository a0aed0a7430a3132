package service

import (
	"errors"
	"fmt"

	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

// Error kinds. Handlers map them to status codes with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition failed")
	ErrConflict     = errors.New("conflict")
)

// Error carries a kind and a message fit for the client.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error      { return newError(ErrValidation, format, args...) }
func notFound(format string, args ...any) error     { return newError(ErrNotFound, format, args...) }
func precondition(format string, args ...any) error { return newError(ErrPrecondition, format, args...) }
func conflict(format string, args ...any) error     { return newError(ErrConflict, format, args...) }
func forbidden(format string, args ...any) error    { return newError(ErrForbidden, format, args...) }

// authorize turns a denied relation check into ErrForbidden.
func authorize(d rbac.Decision) error {
	if err := d.Err(); err != nil {
		return &Error{Kind: ErrForbidden, Msg: err.Error()}
	}
	return nil
}

func requirePermission(caller rbac.Caller, permission string) error {
	if err := rbac.CheckPermission(caller.Role, permission); err != nil {
		return &Error{Kind: ErrForbidden, Msg: err.Error()}
	}
	return nil
}

// fromRepo translates repository errors; anything else is wrapped as internal.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound("%s not found", what)
	case errors.Is(err, repository.ErrConflict):
		return conflict("%s was modified concurrently, retry", what)
	case errors.Is(err, repository.ErrDuplicate):
		return conflict("%s already exists", what)
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return fmt.Errorf("%s: %w", what, err)
}
