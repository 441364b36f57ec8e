package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of these so callers can classify them
// with errors.Is or KindOf.
var (
	ErrNotFound     = errors.New("not found")
	ErrOutOfStock   = errors.New("out of stock")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("concurrent update")
)

type Kind string

const (
	KindNone         Kind = ""
	KindNotFound     Kind = "not_found"
	KindOutOfStock   Kind = "out_of_stock"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation_error"
	KindConflict     Kind = "conflict"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrOutOfStock, KindOutOfStock},
	{ErrUnauthorized, KindUnauthorized},
	{ErrValidation, KindValidation},
	{ErrConflict, KindConflict},
}

// KindOf reports the kind of a user-facing error, or KindNone for anything
// else (infrastructure faults).
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindNone
}

// Error is a user-facing failure. Msg is shown to the caller as is; Kind is
// one of the sentinels above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
