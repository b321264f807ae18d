package cpu

import (
	"errors"
	"fmt"
)

// ErrInvalidSyscall is returned when $v0 names an unrecognized syscall number (spec §4.7).
var ErrInvalidSyscall = errors.New("invalid syscall")

// ErrDivideByZero is returned by div/divu when the divisor is zero.
var ErrDivideByZero = errors.New("divide by zero")

// SyscallError reports the unrecognized $v0 value.
type SyscallError struct {
	V0 int32
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("%s: v0=%d", ErrInvalidSyscall, e.V0)
}

func (e *SyscallError) Is(err error) bool {
	if err == ErrInvalidSyscall {
		return true
	}

	_, ok := err.(*SyscallError)

	return ok
}
