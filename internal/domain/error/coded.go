// Package error holds the domain errors of the business planner. Each area
// has its own code type; codes follow PREFIX-XXYYYY where XX is the
// category and YYYY the specific error.
package error

// CodedError carries a stable code for clients next to a human message and
// an optional cause.
type CodedError[C ~string] struct {
	Code    C
	Message string
	Err     error
}

func (e *CodedError[C]) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CodedError[C]) Unwrap() error {
	return e.Err
}

func newCoded[C ~string](code C, message string, err error) *CodedError[C] {
	return &CodedError[C]{Code: code, Message: message, Err: err}
}
