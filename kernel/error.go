package kernel

// Code is a small negative integer that classifies a kernel error. The values
// double as the result word that failed syscalls hand back to user-space.
type Code int32

// The error classes reported by kernel subsystems.
const (
	CodeIO               Code = -1
	CodeInvalidArgument  Code = -2
	CodeOutOfMemory      Code = -3
	CodeBadPath          Code = -4
	CodeProcessSlotTaken Code = -8
	CodeInvalidFormat    Code = -9
)

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so that callers can
// compare them by identity; the Code field allows callers to react to a whole
// class of errors regardless of the module that raised them.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// The error class.
	Code Code
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is returns true if err is not nil and belongs to the given error class.
func Is(err *Error, code Code) bool {
	return err != nil && err.Code == code
}
