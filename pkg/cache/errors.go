package cache

import "errors"

// ErrUnsupportedArchitecture indicates no installer artifact exists for the
// requested architecture
var ErrUnsupportedArchitecture = errors.New("no installer available for architecture")
