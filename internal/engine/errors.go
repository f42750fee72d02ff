package engine

import "errors"

// Sentinel errors matching the error taxonomy: callers should use
// errors.Is against these, never compare wrapped messages.
var (
	ErrInvalidArgument = errors.New("engine: invalid argument")
	ErrDuplicate       = errors.New("engine: duplicate id")
	ErrNotFound        = errors.New("engine: not found")
	ErrStoreFailure    = errors.New("engine: store failure")
)
