package triple

import "errors"

// Model-level error kinds.
var (
	ErrInvalidTriple = errors.New("invalid triple")
	ErrSerialization = errors.New("serialization error")
)
