package entitlement

import "errors"

// Module errors.
var (
	ErrGenerationLimitReached = errors.New("generation limit reached")
)
