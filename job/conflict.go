package job

import "github.com/go-dav/davsync/dav"

// ConflictError is the failure ItemModifyJob and ItemDeleteJob surface
// on a 412 Precondition Failed: the underlying *dav.Error (kind
// Conflict) plus the fresh item the follow-up fetch retrieved, per
// spec §4.11/§4.12's "freshItem()/freshResponseCode()".
type ConflictError struct {
	Err       *dav.Error
	FreshItem dav.Item
}

func (e *ConflictError) Error() string { return e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }
