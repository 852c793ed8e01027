package maps

import (
	"errors"
	"fmt"
)

// Map errors.
var (
	ErrInvalidPix    = errors.New("maps: invalid pixelization")
	ErrPixMismatch   = errors.New("maps: pixelization mismatch")
	ErrShapeMismatch = errors.New("maps: data length does not match pixelization")
	ErrInvalidBins   = errors.New("maps: bin edges must be strictly increasing")
)

func validateLen(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s has %d values, want %d", ErrShapeMismatch, name, got, want)
	}
	return nil
}

func validateTaper(alpha float64) error {
	if alpha < 0 || alpha > 1 {
		return fmt.Errorf("maps: taper alpha must be in [0,1]: %f", alpha)
	}
	return nil
}
