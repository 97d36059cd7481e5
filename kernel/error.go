package kernel

// Error describes a kernel error. All kernel errors are defined as global
// variables that are pointers to the Error structure so that reporting them
// never requires an allocation.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
