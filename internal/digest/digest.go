// Package digest computes stable content hashes of numeric data.
//
// Hashes are used to detect configuration drift between runs, not for
// security. They must be identical across processes and restarts for
// identical input, so everything is encoded little-endian before hashing.
package digest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Hasher accumulates values into an xxhash digest.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

// New returns an empty Hasher.
func New() *Hasher {
	return &Hasher{d: xxhash.New()}
}

// Int writes an integer.
func (h *Hasher) Int(v int) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], uint64(int64(v)))
	_, _ = h.d.Write(h.buf[:])
	return h
}

// Float writes a float64 bit pattern.
func (h *Hasher) Float(v float64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], math.Float64bits(v))
	_, _ = h.d.Write(h.buf[:])
	return h
}

// Floats writes a length-prefixed float64 slice.
func (h *Hasher) Floats(v []float64) *Hasher {
	h.Int(len(v))
	for _, x := range v {
		h.Float(x)
	}
	return h
}

// Complexes writes a length-prefixed complex128 slice.
func (h *Hasher) Complexes(v []complex128) *Hasher {
	h.Int(len(v))
	for _, c := range v {
		h.Float(real(c))
		h.Float(imag(c))
	}
	return h
}

// String writes a length-prefixed string.
func (h *Hasher) String(s string) *Hasher {
	h.Int(len(s))
	_, _ = h.d.WriteString(s)
	return h
}

// Bytes writes a length-prefixed byte slice.
func (h *Hasher) Bytes(b []byte) *Hasher {
	h.Int(len(b))
	_, _ = h.d.Write(b)
	return h
}

// Sum returns the hex encoded digest.
func (h *Hasher) Sum() string {
	return fmt.Sprintf("%016x", h.d.Sum64())
}
