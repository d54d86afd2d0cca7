package ir

import "errors"

// ErrEmptyPair indicates an aligned pair with neither plane present. This
// is a caller contract violation, the only condition that fails a build.
var ErrEmptyPair = errors.New("aligned pair with neither plane present")
