package pricing

import "errors"

// Lookup failures are sentinel errors so callers can tell a configuration
// problem from an upstream outage. None of them are surfaced by the
// estimator; they only end up in the calculation trace. Only ErrInvalidQuery
// is returned to the caller.
var (
	ErrCredentialsMissing  = errors.New("api credentials not configured")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrNoDataFound         = errors.New("no usable price data found")
	ErrInvalidQuery        = errors.New("invalid price query")
)
