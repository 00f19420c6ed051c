package billing

import "errors"

// Module errors.
var (
	// ErrMissingUserID means a billing event carried no user reference, so
	// there is no subscription record to target. The event is skipped;
	// later events are unaffected.
	ErrMissingUserID = errors.New("billing event missing user id")

	ErrNoSubscription = errors.New("no subscription on record")
)
