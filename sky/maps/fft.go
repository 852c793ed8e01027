package maps

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// planner transforms a Ny×Nx grid as Nx-point row FFTs followed by Ny-point
// column FFTs.
type planner struct {
	pix  Pix
	rows *algofft.Plan[complex128]
	cols *algofft.Plan[complex128]
}

func newPlanner(pix Pix) (*planner, error) {
	rows, err := algofft.NewPlan64(pix.Nx)
	if err != nil {
		return nil, fmt.Errorf("maps: failed to create FFT plan: %w", err)
	}
	cols := rows
	if pix.Ny != pix.Nx {
		cols, err = algofft.NewPlan64(pix.Ny)
		if err != nil {
			return nil, fmt.Errorf("maps: failed to create FFT plan: %w", err)
		}
	}
	return &planner{pix: pix, rows: rows, cols: cols}, nil
}

// transform returns the 2D (inverse) DFT of data. The inverse is normalised
// by 1/(Nx*Ny).
func (p *planner) transform(data []complex128, inverse bool) ([]complex128, error) {
	nx, ny := p.pix.Nx, p.pix.Ny
	out := make([]complex128, len(data))

	n := max(nx, ny)
	src := make([]complex128, n)
	dst := make([]complex128, n)

	run := func(plan *algofft.Plan[complex128], dst, src []complex128) error {
		if inverse {
			return plan.Inverse(dst, src)
		}
		return plan.Forward(dst, src)
	}

	for iy := range ny {
		copy(src[:nx], data[iy*nx:(iy+1)*nx])
		if err := run(p.rows, dst[:nx], src[:nx]); err != nil {
			return nil, fmt.Errorf("maps: row FFT failed: %w", err)
		}
		copy(out[iy*nx:(iy+1)*nx], dst[:nx])
	}

	for ix := range nx {
		for iy := range ny {
			src[iy] = out[iy*nx+ix]
		}
		if err := run(p.cols, dst[:ny], src[:ny]); err != nil {
			return nil, fmt.Errorf("maps: column FFT failed: %w", err)
		}
		for iy := range ny {
			out[iy*nx+ix] = dst[iy]
		}
	}

	return out, nil
}

// fftNorm is the flat-sky Fourier normalisation sqrt(dx*dy/(nx*ny)), which
// makes |F|² an estimate of the angular power spectrum.
func fftNorm(p Pix) float64 {
	return math.Sqrt(p.Dx * p.Dy / float64(p.Nx*p.Ny))
}

func (p *planner) forwardReal(m []float64) ([]complex128, error) {
	in := make([]complex128, len(m))
	for i, v := range m {
		in[i] = complex(v, 0)
	}
	out, err := p.transform(in, false)
	if err != nil {
		return nil, err
	}
	norm := complex(fftNorm(p.pix), 0)
	for i := range out {
		out[i] *= norm
	}
	return out, nil
}

func (p *planner) inverseReal(f []complex128) ([]float64, error) {
	out, err := p.transform(f, true)
	if err != nil {
		return nil, err
	}
	inv := 1 / fftNorm(p.pix)
	m := make([]float64, len(out))
	for i, c := range out {
		m[i] = real(c) * inv
	}
	return m, nil
}

// rotation returns cos(2φ) and sin(2φ) for every mode, φ = atan2(ly, lx).
func rotation(p Pix) (c2, s2 []float64) {
	lx, ly := p.LxLy()
	c2 = make([]float64, p.Size())
	s2 = make([]float64, p.Size())
	for iy, y := range ly {
		for ix, x := range lx {
			phi := math.Atan2(y, x)
			k := iy*p.Nx + ix
			c2[k] = math.Cos(2 * phi)
			s2[k] = math.Sin(2 * phi)
		}
	}
	return c2, s2
}

// TEB transforms the map to its (T, E, B) Fourier representation.
func (m *TQUMap) TEB() (*TEBFFT, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p, err := newPlanner(m.Pix)
	if err != nil {
		return nil, err
	}

	tf, err := p.forwardReal(m.T)
	if err != nil {
		return nil, err
	}
	qf, err := p.forwardReal(m.Q)
	if err != nil {
		return nil, err
	}
	uf, err := p.forwardReal(m.U)
	if err != nil {
		return nil, err
	}

	c2, s2 := rotation(m.Pix)
	ef := make([]complex128, len(qf))
	bf := make([]complex128, len(qf))
	for k := range qf {
		c, s := complex(c2[k], 0), complex(s2[k], 0)
		ef[k] = qf[k]*c + uf[k]*s
		bf[k] = -qf[k]*s + uf[k]*c
	}

	return &TEBFFT{Pix: m.Pix, T: tf, E: ef, B: bf}, nil
}

// TQU transforms back to real-space temperature and Q/U maps.
func (f *TEBFFT) TQU() (*TQUMap, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	p, err := newPlanner(f.Pix)
	if err != nil {
		return nil, err
	}

	c2, s2 := rotation(f.Pix)
	qf := make([]complex128, len(f.E))
	uf := make([]complex128, len(f.E))
	for k := range f.E {
		c, s := complex(c2[k], 0), complex(s2[k], 0)
		qf[k] = f.E[k]*c - f.B[k]*s
		uf[k] = f.E[k]*s + f.B[k]*c
	}

	out := &TQUMap{Pix: f.Pix}
	if out.T, err = p.inverseReal(f.T); err != nil {
		return nil, err
	}
	if out.Q, err = p.inverseReal(qf); err != nil {
		return nil, err
	}
	if out.U, err = p.inverseReal(uf); err != nil {
		return nil, err
	}
	return out, nil
}
