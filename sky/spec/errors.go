package spec

import (
	"errors"
	"fmt"
)

// Spectrum errors.
var (
	ErrInvalidLMax   = errors.New("spec: lmax must be >= 0")
	ErrLMaxMismatch  = errors.New("spec: lmax mismatch")
	ErrShortSpectrum = errors.New("spec: spectrum shorter than lmax+1")
	ErrInvalidFWHM   = errors.New("spec: beam fwhm must be >= 0")
	ErrMalformedCAMB = errors.New("spec: malformed CAMB table")
)

func validateLMax(lmax int) error {
	if lmax < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLMax, lmax)
	}
	return nil
}
