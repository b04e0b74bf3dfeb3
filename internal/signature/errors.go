package signature

import "errors"

// ErrUnauthorized is returned for every verification failure. Callers use
// errors.Is to detect it; the wrapped detail is for logging only and must
// never reach the HTTP response body.
var ErrUnauthorized = errors.New("signature: unauthorized")
