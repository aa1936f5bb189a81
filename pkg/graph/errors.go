package graph

import "errors"

// Graph-layer error kinds. Storage and serialization failures from the
// layers below (pkg/graph/backend, pkg/triple) propagate unmodified and
// are matched with errors.Is against their own sentinels.
var (
	ErrQuery     = errors.New("invalid query")
	ErrIndex     = errors.New("index error")
	ErrDuplicate = errors.New("duplicate triple")
)
