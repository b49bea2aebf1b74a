package store

import "fmt"

// Error wraps a backing-store failure with the store name and the operation
// that failed, so callers can tell which of the two stores misbehaved.
type Error struct {
	Store string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a store Error. Returns nil when err is nil.
func NewError(storeName, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Store: storeName, Op: op, Err: err}
}
