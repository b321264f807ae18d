package ir

import "errors"

// ErrRegister is the sentinel matched by RegisterError via errors.Is.
var ErrRegister = errors.New("unknown register")
