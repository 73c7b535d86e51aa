package transit

import (
	"fmt"
)

// FetchError is returned when a fetch cycle fails. It carries the station
// that aborted the cycle.
type FetchError struct {
	Station int64
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching departures for station %d: %v", e.Station, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError is the cause of a FetchError when the server answered with a
// non-success status code.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %s", e.Status)
}
