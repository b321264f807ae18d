package encode

import (
	"errors"
	"fmt"
)

// ErrInvalidInstruction is the sentinel for field-width overflows and malformed operand lists
// (spec §7).
var ErrInvalidInstruction = errors.New("invalid instruction")

// LabelError reports a branch, jump or la operand naming an unresolved label.
type LabelError struct {
	Label string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%s: unresolved label %q", ErrInvalidInstruction, e.Label)
}

func (e *LabelError) Is(err error) bool {
	if err == ErrInvalidInstruction {
		return true
	}

	_, ok := err.(*LabelError)

	return ok
}
