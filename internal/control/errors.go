package control

import "fmt"

// ExitError ends Run. Reason is one of the sentinels ErrResetRequested,
// ErrGaveUp or hal.ErrNoDisplay; Err is the failure that led to it. Both
// match with errors.Is.
type ExitError struct {
	Reason error
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%v: %v", e.Reason, e.Err)
}

func (e *ExitError) Unwrap() []error {
	return []error{e.Reason, e.Err}
}
