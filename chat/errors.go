package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrBlocked rejects a send when either direction of the pair is
	// blocked. No writes have happened when this is returned.
	ErrBlocked = errors.New("conversation is blocked")

	// ErrWriteConflict is returned by stores that cannot guarantee an
	// atomic append or toggle.
	ErrWriteConflict = errors.New("store write conflict")
)

// UploadError aborts a send whose attachment could not be stored. The
// message is never appended text-only in that case.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q failed: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
