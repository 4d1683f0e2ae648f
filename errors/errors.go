// Package errors holds error helpers shared across the module.
package errors

import "errors"

// Collection accumulates errors from several checks so they can be reported
// together. It is not safe for concurrent use.
type Collection struct {
	errors []error
}

// Add appends an error to the collection. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// AddAll appends every non-nil error.
func (c *Collection) AddAll(errs ...error) {
	for _, err := range errs {
		c.Add(err)
	}
}

// Clear removes all errors from the collection.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError returns true if the collection contains at least one error.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collection) Len() int {
	return len(c.errors)
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collection) Errors() []error {
	if len(c.errors) == 0 {
		return nil
	}

	out := make([]error, len(c.errors))
	copy(out, c.errors)

	return out
}

// GetError returns the collected errors as a single error: nil when empty,
// the error itself when there is exactly one, and errors.Join otherwise.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}
