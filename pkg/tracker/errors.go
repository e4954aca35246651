package tracker

import "errors"

// Failure classes of a poll run. Errors returned by Poller.Run wrap exactly
// one of these; use errors.Is to classify.
var (
	ErrCredentialsMissing = errors.New("credentials missing")
	ErrAuth               = errors.New("token refresh failed")
	ErrFetch              = errors.New("usage fetch failed")
	ErrDelivery           = errors.New("notification delivery failed")
	ErrPersistence        = errors.New("persistence failed")
)
