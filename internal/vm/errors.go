package vm

import (
	"errors"
	"fmt"
)

// Code identifies one fatal runtime condition.
type Code int

// Runtime failure codes. Every one of them is fatal to the running program.
const (
	CodeOutOfMemory       Code = -1
	CodeStackUnderflow    Code = 1
	CodeVariableNotFound  Code = 2
	CodeConstOverwritten  Code = 3
	CodeConstOverwrites   Code = 4
	CodeConstWrite        Code = 5
	CodeTypeMismatch      Code = 6
	CodeInvalidReference  Code = 7
	CodeReadOnly          Code = 8
	CodeRefCountUnderflow Code = 9
	CodeScopeOpen         Code = 10
	CodeIndexOutOfBounds  Code = 0xa11a7
)

var codeNames = map[Code]string{
	CodeOutOfMemory:       "out of memory",
	CodeStackUnderflow:    "stack underflow",
	CodeVariableNotFound:  "variable not found",
	CodeConstOverwritten:  "const variable overwritten",
	CodeConstOverwrites:   "const overwrites variable",
	CodeConstWrite:        "write to const variable",
	CodeTypeMismatch:      "type mismatch",
	CodeInvalidReference:  "invalid reference",
	CodeReadOnly:          "write to read-only memory",
	CodeRefCountUnderflow: "reference count underflow",
	CodeScopeOpen:         "scope has open children",
	CodeIndexOutOfBounds:  "index out of bounds",
}

func (code Code) String() string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(code))
}

// Error is a fatal runtime failure.
type Error struct {
	Code   Code
	Detail string
}

func (err *Error) Error() string {
	if err.Detail == "" {
		return err.Code.String()
	}
	return fmt.Sprintf("%v: %v", err.Code, err.Detail)
}

// Is matches any *Error with the same code, so that sentinels like
// ErrStackUnderflow match regardless of detail.
func (err *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == err.Code
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrOutOfMemory       = &Error{Code: CodeOutOfMemory}
	ErrStackUnderflow    = &Error{Code: CodeStackUnderflow}
	ErrVariableNotFound  = &Error{Code: CodeVariableNotFound}
	ErrConstOverwritten  = &Error{Code: CodeConstOverwritten}
	ErrConstOverwrites   = &Error{Code: CodeConstOverwrites}
	ErrConstWrite        = &Error{Code: CodeConstWrite}
	ErrTypeMismatch      = &Error{Code: CodeTypeMismatch}
	ErrInvalidReference  = &Error{Code: CodeInvalidReference}
	ErrReadOnly          = &Error{Code: CodeReadOnly}
	ErrRefCountUnderflow = &Error{Code: CodeRefCountUnderflow}
	ErrScopeOpen         = &Error{Code: CodeScopeOpen}
	ErrIndexOutOfBounds  = &Error{Code: CodeIndexOutOfBounds}
)

func fail(code Code, mess string, args ...interface{}) *Error {
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	return &Error{Code: code, Detail: mess}
}

func underflow(op string, need, have int) *Error {
	return fail(CodeStackUnderflow, "%v needs %v slots, have %v", op, need, have)
}

// ExitStatus returns the process exit status for err: 0 for nil, the low byte
// of the Code for runtime errors, and 1 for anything else.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return int(rerr.Code) & 0xff
	}
	return 1
}
