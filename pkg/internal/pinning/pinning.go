package pinning

import (
	"context"
	"fmt"
	"time"
)

// PinRecord is one row of a substrate listing: the content address, the
// pin-time name and key/value tags, and when it was pinned. All feed
// classification happens client-side from these tags.
type PinRecord struct {
	ID       string
	Name     string
	Tags     map[string]string
	PinnedAt time.Time
}

// Client is the bit-exact contract the rest of the system depends on. The
// substrate can only pin immutable blobs, list them and fetch them back;
// there are no transactions and no server-side filtering.
type Client interface {
	Pin(ctx context.Context, name string, blob []byte, tags map[string]string) (string, error)
	List(ctx context.Context) ([]PinRecord, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
	Unpin(ctx context.Context, id string) error
}

// StoreUnavailableError means the substrate itself could not be reached or
// authenticated against. It is fatal for the operation that raised it and
// for nothing else.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("pinning store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
