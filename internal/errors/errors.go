// Package errors is the one errors import for the service: stdlib matching
// plus pkg/errors stack traces.
package errors

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

func New(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// AsType is As for interface and value targets without a declared variable.
// The usual caller asks whether err carries a domain AppError.
func AsType[T any](err error) (T, bool) {
	var target T
	ok := err != nil && stderrors.As(err, &target)

	return target, ok
}

// Wrap annotates err with a stack trace and message. A nil err stays nil,
// so `return errors.Wrap(repo.Update(...), "...")` is safe.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(err, format, args...)
}

func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

// Errorf is fmt.Errorf with a stack trace. It does not support %w.
func Errorf(format string, args ...any) error {
	return pkgerrors.Errorf(format, args...)
}
