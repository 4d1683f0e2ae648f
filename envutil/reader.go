package envutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

var (
	ErrBadEnvVar     = errors.New("error parsing environment variable")
	ErrEnvVarMissing = errors.New("missing environment variable")
)

// Reader is a value read from an environment variable, together with
// whether it was present and any error parsing it.
type Reader[A any] struct {
	key     string
	present bool
	err     error

	value A
}

// Key returns the key of the environment variable.
func (e Reader[A]) Key() string {
	return e.key
}

// Value returns the value of the environment variable, or an error if the value
// is missing or if there was an error parsing it.
func (e Reader[A]) Value() (A, error) { //nolint:ireturn
	if e.err != nil {
		return e.value, fmt.Errorf("%w %s: %w", ErrBadEnvVar, e.key, e.err)
	}

	if !e.present {
		return e.value, fmt.Errorf("%w %s", ErrEnvVarMissing, e.key)
	}

	return e.value, nil
}

// ValueOrFatal returns the value of the environment variable, or exits the
// program if the value is missing or if there was an error parsing it.
func (e Reader[A]) ValueOrFatal() A { //nolint:ireturn
	value, err := e.Value()
	if err != nil {
		slog.Error("error reading environment variable", "key", e.Key(), "error", err)
		os.Exit(1)
	}

	return value
}

// ValueOrElse returns the value of the environment variable, or v
// if the value is missing or if there was an error parsing it.
func (e Reader[A]) ValueOrElse(v A) A { //nolint:ireturn
	if e.present && e.err == nil {
		return e.value
	}

	if e.err != nil {
		slog.Warn("error reading environment variable, using fallback value",
			"key", e.Key(), "error", e.err, "fallback", v)
	}

	return v
}

// HasValue returns true if the environment variable was set and parsed.
func (e Reader[A]) HasValue() bool {
	return e.present && e.err == nil
}

// Error returns the error that occurred when reading the environment variable, if any.
func (e Reader[A]) Error() error {
	return e.err
}

// String returns a representation of the Reader suitable for logs.
func (e Reader[A]) String() string {
	if e.err != nil {
		return fmt.Sprintf("%s=<error: %v>", e.key, e.err)
	}

	if e.present {
		return fmt.Sprintf("%s=%v", e.key, e.value)
	}

	return e.key + "=<not set>"
}

// WithErrorIfMissing returns a Reader carrying err if the original has no value.
func (e Reader[A]) WithErrorIfMissing(err error) Reader[A] { //nolint:ireturn
	if e.present || e.err != nil {
		return e
	}

	return Reader[A]{
		key: e.key,
		err: err,
	}
}

// WithDefault returns a Reader holding v if the original has no value.
func (e Reader[A]) WithDefault(v A) Reader[A] { //nolint:ireturn
	if e.present {
		return e
	}

	return Reader[A]{
		key:     e.key,
		present: true,
		err:     e.err,
		value:   v,
	}
}

// Map returns a new Reader with the value transformed by the given function.
// Missing values and earlier errors pass through untouched.
func Map[A any, B any](env Reader[A], f func(A) (B, error)) Reader[B] {
	if !env.present || env.err != nil {
		return Reader[B]{
			key:     env.key,
			present: env.present,
			err:     env.err,
		}
	}

	val, err := f(env.value)

	return Reader[B]{
		key:     env.key,
		present: true,
		err:     err,
		value:   val,
	}
}
