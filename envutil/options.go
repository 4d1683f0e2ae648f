package envutil

import (
	"cmp"
	"errors"
	"fmt"
)

// ErrBelowMinimum is returned by AtLeast for values under the bound.
var ErrBelowMinimum = errors.New("value below minimum")

// Option adjusts a Reader after the raw variable has been read and parsed.
// Options run in the order they are passed to String, Bool and friends.
type Option[T any] func(Reader[T]) Reader[T]

// Default fills in dfl when the variable is unset.
func Default[T any](dfl T) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithDefault(dfl)
	}
}

// IfMissing turns an unset variable into err.
func IfMissing[T any](err error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithErrorIfMissing(err)
	}
}

// Validate rejects values for which check returns an error.
func Validate[T any](check func(T) error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return Map(rdr, func(val T) (T, error) {
			return val, check(val)
		})
	}
}

// AtLeast rejects values smaller than minimum.
func AtLeast[T cmp.Ordered](minimum T) Option[T] {
	return Validate(func(val T) error {
		if val < minimum {
			return fmt.Errorf("%w: %v < %v", ErrBelowMinimum, val, minimum)
		}

		return nil
	})
}
