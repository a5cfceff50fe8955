package cleanup

import "errors"

// ErrUnknownToken indicates the skip-list contained an unrecognized token.
// Parsing fails closed: a typo must never silently disable skipping.
var ErrUnknownToken = errors.New("unrecognized cleanup skip token")
