package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller mistakes rejected before any backend call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration marks fatal construction-time problems: bad
	// credentials, unreachable storage, missing index, model mismatch.
	ErrConfiguration = errors.New("configuration error")
	// ErrIndexUnavailable marks a vector store that cannot be reached or has
	// not been loaded, as opposed to a query with zero matches.
	ErrIndexUnavailable = errors.New("index unavailable")

	// Generation backend failure kinds, all recoverable per call.
	ErrBackendTimeout     = errors.New("generation backend timeout")
	ErrBackendUnavailable = errors.New("generation backend unavailable")
	ErrBackendRefused     = errors.New("generation backend refused")

	// ErrTemporary marks transient infrastructure failures worth retrying.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsGenerationFailure reports whether err is one of the recoverable
// generation backend failure kinds.
func IsGenerationFailure(err error) bool {
	return errors.Is(err, ErrBackendTimeout) ||
		errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrBackendRefused)
}
