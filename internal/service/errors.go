package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindForbidden
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error is a failure whose Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFoundError(msg string, cause error) error {
	return &Error{Kind: KindNotFound, Message: msg, Err: cause}
}

func forbiddenError(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// storageError keeps the underlying file-system or object-store message visible.
func storageError(cause error) error {
	return &Error{Kind: KindStorage, Message: cause.Error(), Err: cause}
}

func internalError(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

var (
	// ErrInvalidCredentials is shared by unknown-email and wrong-password logins.
	ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "Invalid credentials."}
	// ErrEmailExists is returned when an email belongs to another user.
	ErrEmailExists = &Error{Kind: KindValidation, Message: "Email already exists."}
)
