package object

import "errors"

// Error kinds shared by the store and its callers. Wrapped errors carry the
// operation and object id; test with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrCorruptObject   = errors.New("corrupt object")
	ErrStorage         = errors.New("storage error")
)
