package index

import (
	"errors"
	"fmt"
)

// ErrIndexCorruption is matched by every *CorruptionError.
var ErrIndexCorruption = errors.New("index corruption")

// CorruptionError reports serialized index data that could not be restored.
type CorruptionError struct {
	Collection string
	Reason     string
	Err        error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("index corruption in %s: %s", e.Collection, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrIndexCorruption.
func (e *CorruptionError) Is(target error) bool {
	return target == ErrIndexCorruption
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
