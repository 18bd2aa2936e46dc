package host

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedItemKind is returned for items that are neither emails
	// nor appointments.
	ErrUnsupportedItemKind = errors.New("unsupported item kind")

	// ErrNotImplemented is returned by capabilities the host lacks.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoInjectionSurface is returned when generated text has nowhere to go.
	ErrNoInjectionSurface = errors.New("no injection surface available")
)

// UnsupportedKindError names the rejected kind. It matches
// ErrUnsupportedItemKind with errors.Is.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported item kind %q", string(e.Kind))
}

func (e *UnsupportedKindError) Unwrap() error {
	return ErrUnsupportedItemKind
}
