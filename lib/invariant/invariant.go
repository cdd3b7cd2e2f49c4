// Package invariant holds the error taxonomy shared by the math packages.
//
// Every failure belongs to one of three categories: a domain error (an input
// outside the valid range), an overflow error (a value that does not fit the
// fixed-width result) or an invariant violation (inconsistent caller state,
// e.g. a tick crossing that would make liquidity negative). Packages declare
// their own sentinels with New so callers can match either the exact failure
// or its category with errors.Is.
package invariant

import "errors"

var (
	ErrDomain    = errors.New("domain error")
	ErrOverflow  = errors.New("overflow")
	ErrViolation = errors.New("invariant violation")
)

type Error struct {
	Category error
	Msg      string
}

func New(category error, msg string) *Error {
	return &Error{Category: category, Msg: msg}
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Category
}

// Invariant returns err unless cond holds.
func Invariant(cond bool, err error) error {
	if cond {
		return nil
	}
	return err
}

// Category reports which of the three categories err belongs to, or nil.
func Category(err error) error {
	switch {
	case errors.Is(err, ErrDomain):
		return ErrDomain
	case errors.Is(err, ErrOverflow):
		return ErrOverflow
	case errors.Is(err, ErrViolation):
		return ErrViolation
	}
	return nil
}
