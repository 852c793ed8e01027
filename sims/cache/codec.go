package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-cmb/sky/maps"
)

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errors.New("cache: corrupt record")

const codecVersion = 1

// Record layout, little endian: version u8, Nx u32, Ny u32, Dx f64, Dy f64,
// then T, E and B as (re, im) f64 pairs.
const headerLen = 1 + 4 + 4 + 8 + 8

func encodeTEB(f *maps.TEBFFT) []byte {
	buf := make([]byte, 0, headerLen+3*16*f.Size())
	buf = append(buf, codecVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.Nx))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.Ny))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f.Dx))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f.Dy))
	for _, c := range [][]complex128{f.T, f.E, f.B} {
		for _, v := range c {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(real(v)))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(imag(v)))
		}
	}
	return buf
}

func decodeTEB(data []byte) (*maps.TEBFFT, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if data[0] != codecVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorrupt, data[0])
	}
	le := binary.LittleEndian
	pix := maps.Pix{
		Nx: int(le.Uint32(data[1:])),
		Ny: int(le.Uint32(data[5:])),
		Dx: math.Float64frombits(le.Uint64(data[9:])),
		Dy: math.Float64frombits(le.Uint64(data[17:])),
	}
	if err := pix.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if want := headerLen + 3*16*pix.Size(); len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrCorrupt, len(data), want)
	}

	out := maps.NewTEBFFT(pix)
	p := data[headerLen:]
	for _, c := range [][]complex128{out.T, out.E, out.B} {
		for k := range c {
			re := math.Float64frombits(le.Uint64(p))
			im := math.Float64frombits(le.Uint64(p[8:]))
			c[k] = complex(re, im)
			p = p[16:]
		}
	}
	return out, nil
}
