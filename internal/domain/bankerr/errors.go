package bankerr

import "errors"

// Sentinel errors shared across services and repositories. Business
// rejections (insufficient funds, wrong status) are recorded as rejected
// transaction records and returned to the caller without an error; these
// sentinels cover the structural and auth failures that abort a single
// request or event.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state for requested operation")
	ErrMalformedInput     = errors.New("malformed input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
