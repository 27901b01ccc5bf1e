package board

import "fmt"

// RemoteError is returned when a remote write failed. The local collection
// has been reloaded from the remote store when Reloaded is set.
type RemoteError struct {
	Op       string
	Err      error
	Reloaded bool
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
