package ivf

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sky/maps"
	"github.com/cwbudde/algo-cmb/sky/spec"
)

// DiagEmp is the diagonal filter applied to one fixed, already assembled
// map, such as an empirical noise realization. SimTEB ignores its index.
type DiagEmp struct {
	diagCore
	tqu *maps.TQUMap
}

// NewDiagEmp builds the filter for tqu. The map is copied.
func NewDiagEmp(ctx context.Context, tqu *maps.TQUMap, cl *spec.ClMatTEB, transf Transfer, opts ...Option) (*DiagEmp, error) {
	if tqu == nil {
		return nil, fmt.Errorf("%w: map is required", ErrNilInput)
	}
	if err := tqu.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	core, err := newDiagCore(cl, transf, tqu.Pix, o)
	if err != nil {
		return nil, err
	}
	d := &DiagEmp{diagCore: core, tqu: tqu.Clone()}
	if err := checkIfConfigured(ctx, d, o); err != nil {
		return nil, err
	}
	return d, nil
}

// SimTEB returns the filtered map. The index is ignored; callers
// conventionally pass 0.
func (d *DiagEmp) SimTEB(int) (*maps.TEBFFT, error) {
	return d.filter(d.tqu)
}

func (d *DiagEmp) HashDict() hashdict.Dict {
	return d.hashDict(d.ObsHashDict())
}

// ObsHashDict describes the fixed input map.
func (d *DiagEmp) ObsHashDict() hashdict.Dict {
	return hashdict.Dict{"pix": d.tqu.Pix.Hash(), "tqu": d.tqu.Hash()}
}
