package errors

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Errorf is re-exported from fmt
var Errorf = fmt.Errorf

// New is an alias to Errorf
var New = Errorf

// ErrorfWithStack is Errorf re-exported from github.com/pkg/errors
var ErrorfWithStack = errors.Errorf

// WrapfOrNil is WithMessagef re-exported from github.com/pkg/errors
func WrapfOrNil(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, fmt.Sprintf(format, args...))
}

// Wrapf is WrapfOrNil if err != nil, and Errorf otherwise: it never returns nil
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return Errorf(format, args...)
	}
	return WrapfOrNil(err, format, args...)
}

// WithStack is re-exported from github.com/pkg/errors
var WithStack = errors.WithStack

// Cause is re-exported from github.com/pkg/errors
var Cause = errors.Cause

// As is re-exported from github.com/pkg/errors
var As = errors.As

// Is is re-exported from github.com/pkg/errors
var Is = errors.Is

// ShapeError is returned when tensor dimensions do not line up: a batch of the
// wrong size, ragged hunk or line counts, or a width that was not propagated.
type ShapeError struct {
	Op  string
	Msg string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: %s", e.Op, e.Msg)
}

// InvalidInputError is returned for inputs that have no defined result, such as
// pooling over an empty sequence or looking up an id outside the vocabulary.
type InvalidInputError struct {
	Op  string
	Msg string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Msg)
}

// ConfigError is returned when hyperparameters are inconsistent with each other.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Msg)
}

// Shapef builds a *ShapeError with a stack
func Shapef(op, format string, args ...interface{}) error {
	return errors.WithStack(&ShapeError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// InvalidInputf builds an *InvalidInputError with a stack
func InvalidInputf(op, format string, args ...interface{}) error {
	return errors.WithStack(&InvalidInputError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// Configf builds a *ConfigError
func Configf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsShapeError reports whether err wraps a *ShapeError
func IsShapeError(err error) bool {
	var e *ShapeError
	return errors.As(err, &e)
}

// IsInvalidInput reports whether err wraps an *InvalidInputError
func IsInvalidInput(err error) bool {
	var e *InvalidInputError
	return errors.As(err, &e)
}

// IsConfigError reports whether err wraps a *ConfigError
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// Errors is a non-empty list of errors.
type Errors []error

func (m Errors) Error() string {
	var b bytes.Buffer
	for i, err := range m {
		if i > 0 {
			fmt.Fprint(&b, "\n")
		}
		fmt.Fprint(&b, err)
	}
	return b.String()
}

// Combine combines errors e & f into a single error, flattening lists
func Combine(e, f error) error {
	var out Errors
	for _, err := range []error{e, f} {
		switch err := err.(type) {
		case nil:
		case Errors:
			out = append(out, err...)
		default:
			out = append(out, err)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

// Defer is a helper method for deferring error-returning functions
func Defer(err *error, f func() error) {
	*err = Combine(*err, f())
}
