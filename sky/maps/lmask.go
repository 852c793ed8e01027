package maps

import "math"

// LBounds is a multipole band-pass. A nil bound is unbounded on that side.
//
// A mode survives when lmin <= ℓ < lmax, lxmin <= |lx| < lxmax and
// lymin <= |ly| < lymax.
type LBounds struct {
	LMin, LMax   *float64
	LxMin, LxMax *float64
	LyMin, LyMax *float64
}

// Bound returns a pointer to v, for building LBounds literals.
func Bound(v float64) *float64 { return &v }

// Clone returns bounds that share no pointers with b.
func (b LBounds) Clone() LBounds {
	dup := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		return Bound(*p)
	}
	return LBounds{
		LMin: dup(b.LMin), LMax: dup(b.LMax),
		LxMin: dup(b.LxMin), LxMax: dup(b.LxMax),
		LyMin: dup(b.LyMin), LyMax: dup(b.LyMax),
	}
}

// IsZero reports whether no bound is set.
func (b LBounds) IsZero() bool {
	return b.LMin == nil && b.LMax == nil &&
		b.LxMin == nil && b.LxMax == nil &&
		b.LyMin == nil && b.LyMax == nil
}

// Keep reports whether the mode (lx, ly) passes every bound.
func (b LBounds) Keep(lx, ly float64) bool {
	ell := math.Hypot(lx, ly)
	ax, ay := math.Abs(lx), math.Abs(ly)
	switch {
	case b.LMin != nil && ell < *b.LMin:
		return false
	case b.LMax != nil && ell >= *b.LMax:
		return false
	case b.LxMin != nil && ax < *b.LxMin:
		return false
	case b.LxMax != nil && ax >= *b.LxMax:
		return false
	case b.LyMin != nil && ay < *b.LyMin:
		return false
	case b.LyMax != nil && ay >= *b.LyMax:
		return false
	}
	return true
}

// Selection evaluates Keep for every mode of pix, row-major.
func (b LBounds) Selection(pix Pix) []bool {
	lx, ly := pix.LxLy()
	out := make([]bool, pix.Size())
	for iy, y := range ly {
		for ix, x := range lx {
			out[iy*pix.Nx+ix] = b.Keep(x, y)
		}
	}
	return out
}

// HashDict returns the bounds keyed by name, nil where unset.
func (b LBounds) HashDict() map[string]any {
	val := func(p *float64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	return map[string]any{
		"lmin":  val(b.LMin),
		"lmax":  val(b.LMax),
		"lxmin": val(b.LxMin),
		"lxmax": val(b.LxMax),
		"lymin": val(b.LyMin),
		"lymax": val(b.LyMax),
	}
}
