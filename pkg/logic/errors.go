package logic

import "errors"

// Logic-layer error kinds. Graph-layer failures wrap through unmodified
// and stay matchable with errors.Is against their own sentinels.
var (
	ErrInvalidRule         = errors.New("invalid rule")
	ErrRuleConflict        = errors.New("rule conflict")
	ErrValidationFailed    = errors.New("validation failed")
	ErrContradiction       = errors.New("contradiction")
	ErrInvalidProof        = errors.New("invalid proof")
	ErrUnificationFailed   = errors.New("unification failed")
	ErrInferenceLoop       = errors.New("inference loop")
	ErrMaxDepthExceeded    = errors.New("max depth exceeded")
	ErrMissingPrecondition = errors.New("missing precondition")
)
