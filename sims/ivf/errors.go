package ivf

import "errors"

var (
	// ErrUnknownComponent is returned for a component selector other than
	// "cltt", "clee" or "clbb".
	ErrUnknownComponent = errors.New("ivf: unknown component")
	// ErrInvalidLCut is returned for a negative multipole cut.
	ErrInvalidLCut = errors.New("ivf: invalid lcut")
	// ErrNilInput is returned when a required constructor argument is nil.
	ErrNilInput = errors.New("ivf: nil input")
)
