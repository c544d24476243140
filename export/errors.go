package export

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrExportInProgress is returned when an export is requested while
	// another export session holds the lease. Callers may retry later.
	ErrExportInProgress = errors.New("export already in progress")

	// ErrSurfaceUnavailable is returned by a Surface that is not mounted.
	ErrSurfaceUnavailable = errors.New("rendering surface unavailable")

	// ErrCancelled is returned when the export context ends before the
	// artifact is complete.
	ErrCancelled = errors.New("export cancelled")

	// ErrInvalidRequest is returned for requests that fail Request.Validate.
	ErrInvalidRequest = errors.New("invalid export request")
)

// CaptureError reports the frame at which capture failed.
type CaptureError struct {
	Index int
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed at frame %d: %v", e.Index, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// EncodeError carries the diagnostic of a rejected or failed compression.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func cancelled(ctx context.Context) error {
	return errors.Wrap(ErrCancelled, ctx.Err().Error())
}
