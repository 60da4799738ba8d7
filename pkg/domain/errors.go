package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind partitions failures the way the dashboard reports them.
type ErrorKind string

const (
	// ErrValidation failed a local precondition; no request was issued.
	ErrValidation ErrorKind = "validation"
	// ErrAuth means the session is invalid and has been torn down.
	ErrAuth ErrorKind = "auth"
	// ErrServer is a backend rejection; its message is surfaced verbatim.
	ErrServer ErrorKind = "server"
	// ErrNetwork means the request never completed; the attempt can be retried.
	ErrNetwork ErrorKind = "network"
)

// Error is the tagged failure value every operation reports.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func AuthErr(msg string) *Error {
	return &Error{Kind: ErrAuth, Message: msg}
}

// FromStatus maps a backend HTTP rejection onto the taxonomy.
func FromStatus(status int, msg string) *Error {
	if status == http.StatusUnauthorized {
		return &Error{Kind: ErrAuth, Message: msg}
	}
	return &Error{Kind: ErrServer, Message: msg}
}

// NetworkErr is the generic retry prompt for requests that never completed.
func NetworkErr() *Error {
	return &Error{Kind: ErrNetwork, Message: "network error, please retry"}
}

// KindOf returns the kind of a tagged error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
