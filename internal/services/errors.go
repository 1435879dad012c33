package services

import (
	"errors"

	"kopilka/internal/core"
)

// ErrUnknownKind is returned by Run for an unsupported report kind.
var ErrUnknownKind = errors.New("unknown report kind")

// IsInputError reports whether err was caused by caller input rather than a
// failing backend. Transports map it to 400 or a non-retryable result.
func IsInputError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidTimestamp,
		core.ErrInvalidDate,
		core.ErrInvalidMonth,
		core.ErrInvalidLimit,
		ErrUnknownKind,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
