package maps

import "github.com/cwbudde/algo-cmb/internal/digest"

// RMap is a real-space scalar map.
type RMap struct {
	Pix
	Map []float64
}

// NewRMap returns a zero-valued map on pix.
func NewRMap(pix Pix) *RMap {
	return &RMap{Pix: pix, Map: make([]float64, pix.Size())}
}

// Validate checks the pixelization and data length.
func (r *RMap) Validate() error {
	if err := r.Pix.Validate(); err != nil {
		return err
	}
	return validateLen("map", len(r.Map), r.Size())
}

// Clone returns a deep copy.
func (r *RMap) Clone() *RMap {
	return &RMap{Pix: r.Pix, Map: append([]float64(nil), r.Map...)}
}

// Hash returns a stable digest of geometry and pixel values.
func (r *RMap) Hash() string {
	return r.Pix.digest(digest.New()).Floats(r.Map).Sum()
}

// TQUMap holds temperature and Stokes Q/U polarization maps on a common grid.
type TQUMap struct {
	Pix
	T, Q, U []float64
}

// NewTQUMap returns a zero-valued map on pix.
func NewTQUMap(pix Pix) *TQUMap {
	n := pix.Size()
	return &TQUMap{
		Pix: pix,
		T:   make([]float64, n),
		Q:   make([]float64, n),
		U:   make([]float64, n),
	}
}

// Validate checks the pixelization and data lengths.
func (m *TQUMap) Validate() error {
	if err := m.Pix.Validate(); err != nil {
		return err
	}
	n := m.Size()
	if err := validateLen("T", len(m.T), n); err != nil {
		return err
	}
	if err := validateLen("Q", len(m.Q), n); err != nil {
		return err
	}
	return validateLen("U", len(m.U), n)
}

// Clone returns a deep copy.
func (m *TQUMap) Clone() *TQUMap {
	return &TQUMap{
		Pix: m.Pix,
		T:   append([]float64(nil), m.T...),
		Q:   append([]float64(nil), m.Q...),
		U:   append([]float64(nil), m.U...),
	}
}

// Hash returns a stable digest of geometry and all three maps.
func (m *TQUMap) Hash() string {
	return m.Pix.digest(digest.New()).Floats(m.T).Floats(m.Q).Floats(m.U).Sum()
}
