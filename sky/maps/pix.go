package maps

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-cmb/internal/digest"
)

// Pix describes a rectangular flat-sky pixelization. Dx and Dy are pixel
// sizes in radians.
type Pix struct {
	Nx, Ny int
	Dx, Dy float64
}

// NewPix returns a square nx×nx pixelization with square pixels of side dx.
func NewPix(nx int, dx float64) Pix {
	return Pix{Nx: nx, Ny: nx, Dx: dx, Dy: dx}
}

// Validate reports whether the pixelization is usable.
func (p Pix) Validate() error {
	if p.Nx <= 0 || p.Ny <= 0 {
		return fmt.Errorf("%w: dimensions must be > 0: %dx%d", ErrInvalidPix, p.Nx, p.Ny)
	}
	if !(p.Dx > 0) || !(p.Dy > 0) {
		return fmt.Errorf("%w: pixel size must be > 0: %gx%g", ErrInvalidPix, p.Dx, p.Dy)
	}
	return nil
}

// Size returns the number of pixels (and Fourier modes).
func (p Pix) Size() int { return p.Nx * p.Ny }

// Compatible reports whether two pixelizations describe the same grid.
func (p Pix) Compatible(o Pix) bool {
	return p.Nx == o.Nx && p.Ny == o.Ny && p.Dx == o.Dx && p.Dy == o.Dy
}

func (p Pix) mustMatch(o Pix) error {
	if !p.Compatible(o) {
		return fmt.Errorf("%w: %dx%d@%gx%g vs %dx%d@%gx%g",
			ErrPixMismatch, p.Nx, p.Ny, p.Dx, p.Dy, o.Nx, o.Ny, o.Dx, o.Dy)
	}
	return nil
}

// Lx returns the x wavenumber of Fourier column ix.
func (p Pix) Lx(ix int) float64 { return 2 * math.Pi * fftfreq(ix, p.Nx, p.Dx) }

// Ly returns the y wavenumber of Fourier row iy.
func (p Pix) Ly(iy int) float64 { return 2 * math.Pi * fftfreq(iy, p.Ny, p.Dy) }

// LxLy returns the wavenumbers of every Fourier column and row.
func (p Pix) LxLy() (lx, ly []float64) {
	lx = make([]float64, p.Nx)
	for ix := range lx {
		lx[ix] = p.Lx(ix)
	}
	ly = make([]float64, p.Ny)
	for iy := range ly {
		ly[iy] = p.Ly(iy)
	}
	return lx, ly
}

// Ell returns the multipole of every Fourier mode, row-major.
func (p Pix) Ell() []float64 {
	lx, ly := p.LxLy()
	out := make([]float64, p.Size())
	for iy, y := range ly {
		row := out[iy*p.Nx : (iy+1)*p.Nx]
		for ix, x := range lx {
			row[ix] = math.Hypot(x, y)
		}
	}
	return out
}

// Hash returns a stable digest of the grid geometry.
func (p Pix) Hash() string {
	return p.digest(digest.New()).Sum()
}

func (p Pix) digest(h *digest.Hasher) *digest.Hasher {
	return h.Int(p.Nx).Int(p.Ny).Float(p.Dx).Float(p.Dy)
}

// fftfreq follows numpy.fft.fftfreq: bins above (n-1)/2 are negative.
func fftfreq(k, n int, d float64) float64 {
	if k > (n-1)/2 {
		k -= n
	}
	return float64(k) / (float64(n) * d)
}
