package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds drive what the caller does with a failed job: fatal and
// transient failures are re-raised so the delivery transport can redeliver,
// validation failures are terminal for that document.
var (
	// ErrFatal marks a failure before the job record exists; there is
	// nothing to compensate.
	ErrFatal = errors.New("fatal failure")

	// ErrValidation marks input the pipeline will never accept,
	// e.g. a document over the size limit.
	ErrValidation = errors.New("validation failure")

	// ErrTransient marks I/O or model failures that may succeed on
	// redelivery.
	ErrTransient = errors.New("transient failure")
)

// wrapKind preserves the failure kind alongside operation context.
func wrapKind(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
