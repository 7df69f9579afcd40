package codec

import "fmt"

// ValidationError rejects bad input before anything touches the substrate.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// DecodeError describes a single malformed pinned blob. It never fails a
// whole batch; the caller degrades the one item to a placeholder.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode pinned blob %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
