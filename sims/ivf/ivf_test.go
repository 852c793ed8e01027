package ivf

import (
	"context"
	"errors"
	"math/cmplx"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-cmb/internal/testutil"
	"github.com/cwbudde/algo-cmb/sims/coord"
	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sims/obs"
	"github.com/cwbudde/algo-cmb/sky/alm"
	"github.com/cwbudde/algo-cmb/sky/maps"
	"github.com/cwbudde/algo-cmb/sky/spec"
)

const testLMax = 8000

func testPix() maps.Pix {
	return maps.NewPix(16, testutil.ArcminToRad(2))
}

func theory(t *testing.T, lmax int) *spec.ClMatTEB {
	t.Helper()
	tt := make([]float64, lmax+1)
	ee := make([]float64, lmax+1)
	bb := make([]float64, lmax+1)
	te := make([]float64, lmax+1)
	for l := range tt {
		x := float64(l+1) * float64(l+2)
		tt[l] = 1e3 / x
		ee[l] = 2e1 / x
		bb[l] = 1e-1 / x
		te[l] = 1e1 / x
	}
	cl, err := spec.FromCls(lmax, spec.Cls{TT: tt, EE: ee, BB: bb, TE: te})
	require.NoError(t, err)
	return cl
}

func beam(t *testing.T, lmax int) *spec.ClMatTEB {
	t.Helper()
	b, err := spec.GaussianBeam(1.5, lmax)
	require.NoError(t, err)
	return b
}

func staticObs(t *testing.T, n int) *obs.Static {
	t.Helper()
	sims := make([]*maps.TQUMap, n)
	for i := range sims {
		sims[i] = testutil.RandomTQU(testPix(), int64(10*i+1), 100)
	}
	lib, err := obs.NewStatic(sims...)
	require.NoError(t, err)
	return lib
}

func newDiag(t *testing.T, opts ...Option) *Diag {
	t.Helper()
	opts = append([]Option{WithNoiseLevels(10, 14)}, opts...)
	d, err := NewDiag(context.Background(), staticObs(t, 2), theory(t, testLMax), beam(t, testLMax), opts...)
	require.NoError(t, err)
	return d
}

func variants(t *testing.T) map[string]Library {
	t.Helper()
	d := newDiag(t)
	tqu := testutil.RandomTQU(testPix(), 99, 100)
	emp, err := NewDiagEmp(context.Background(), tqu, theory(t, testLMax), beam(t, testLMax), WithNoiseLevels(5, 5))
	require.NoError(t, err)
	return map[string]Library{
		"diag":     d,
		"diag_emp": emp,
		"l_mask":   NewLMask(d, maps.LBounds{LMin: maps.Bound(500), LxMax: maps.Bound(4000)}),
	}
}

func TestSimComponentsMatchTEB(t *testing.T) {
	for name, lib := range variants(t) {
		t.Run(name, func(t *testing.T) {
			for i := range 2 {
				teb, err := lib.SimTEB(i)
				require.NoError(t, err)

				st, err := SimT(lib, i)
				require.NoError(t, err)
				se, err := SimE(lib, i)
				require.NoError(t, err)
				sb, err := SimB(lib, i)
				require.NoError(t, err)

				assert.Equal(t, teb.T, st.F)
				assert.Equal(t, teb.E, se.F)
				assert.Equal(t, teb.B, sb.F)
			}
		})
	}
}

func TestFLComponents(t *testing.T) {
	for name, lib := range variants(t) {
		t.Run(name, func(t *testing.T) {
			fl := lib.FL()
			assert.Equal(t, fl.T, FLT(lib).F)
			assert.Equal(t, fl.E, FLE(lib).F)
			assert.Equal(t, fl.B, FLB(lib).F)
		})
	}
}

func TestFLIdempotent(t *testing.T) {
	for name, lib := range variants(t) {
		t.Run(name, func(t *testing.T) {
			first := lib.FL()
			want := first.Hash()
			first.T[1] = 42
			assert.Equal(t, want, lib.FL().Hash())
			assert.Equal(t, lib.FL().Hash(), lib.FL().Hash())
		})
	}
}

func TestDiagSimTEBPipeline(t *testing.T) {
	d := newDiag(t)
	m, err := d.obs.SimTQU(1)
	require.NoError(t, err)

	emp, err := NewDiagEmp(context.Background(), m, d.cl, beam(t, testLMax), WithNoiseLevels(10, 14))
	require.NoError(t, err)

	got, err := d.SimTEB(1)
	require.NoError(t, err)
	want, err := emp.SimTEB(0)
	require.NoError(t, err)
	assert.Equal(t, want.Hash(), got.Hash())

	ignored, err := emp.SimTEB(7)
	require.NoError(t, err)
	assert.Equal(t, want.Hash(), ignored.Hash())
}

func TestFLValues(t *testing.T) {
	const lmax = 3000
	const ct, ce, cb = 2e-4, 3e-5, 1e-6
	cl, err := spec.Diagonal(lmax, ct, ce, cb)
	require.NoError(t, err)
	ones, err := spec.Diagonal(lmax, 1, 1, 1)
	require.NoError(t, err)

	d, err := NewDiag(context.Background(), staticObs(t, 1), cl, ones, WithNoiseLevels(10, 20))
	require.NoError(t, err)

	nt, np := spec.NlevToCl(10), spec.NlevToCl(20)
	fl := d.FL()
	var inside, outside int
	for k, ell := range testPix().Ell() {
		if ell > lmax {
			outside++
			assert.Zero(t, fl.T[k])
			assert.Zero(t, fl.B[k])
			continue
		}
		inside++
		assert.InDelta(t, 1/(ct+nt), real(fl.T[k]), 1e-9/(ct+nt))
		assert.InDelta(t, 1/(ce+np), real(fl.E[k]), 1e-9/(ce+np))
		assert.InDelta(t, 1/(cb+np), real(fl.B[k]), 1e-9/(cb+np))
	}
	assert.Positive(t, inside)
	assert.Positive(t, outside)
}

func TestZeroNoiseIsInverseTheory(t *testing.T) {
	pix := testPix()
	cl := theory(t, testLMax)
	d, err := NewDiag(context.Background(), staticObs(t, 1), cl, beam(t, testLMax))
	require.NoError(t, err)

	clGrid, err := cl.OnGrid(pix)
	require.NoError(t, err)
	want := clGrid.Inverse()
	fl := d.FL()
	testutil.RequireComplexNearlyEqual(t, fl.T, want.T, 0)
	testutil.RequireComplexNearlyEqual(t, fl.E, want.E, 0)
	testutil.RequireComplexNearlyEqual(t, fl.B, want.B, 0)
}

func TestTransferOnGridEquivalent(t *testing.T) {
	b := beam(t, testLMax)
	grid, err := b.OnGrid(testPix())
	require.NoError(t, err)

	fromCl := newDiag(t)
	fromGrid, err := NewDiag(context.Background(), staticObs(t, 2), theory(t, testLMax), grid, WithNoiseLevels(10, 14))
	require.NoError(t, err)

	assert.Equal(t, fromCl.FL().Hash(), fromGrid.FL().Hash())
	assert.NotEqual(t, fromCl.HashDict()["transf"], fromGrid.HashDict()["transf"])
}

func TestTransferGridMismatch(t *testing.T) {
	grid := maps.NewTEBFFT(maps.NewPix(8, 0.001))
	_, err := NewDiag(context.Background(), staticObs(t, 1), theory(t, testLMax), grid)
	assert.ErrorIs(t, err, maps.ErrPixMismatch)
}

func TestMask(t *testing.T) {
	apod, err := maps.Apodize(testPix(), 0.5)
	require.NoError(t, err)

	plain := newDiag(t)
	masked := newDiag(t, WithMask(apod))
	assert.Equal(t, apod.Hash(), masked.FMask().Hash())
	assert.Equal(t, maps.Ones(testPix()).Hash(), plain.FMask().Hash())
	assert.NotEqual(t, plain.HashDict()["mask"], masked.HashDict()["mask"])

	a, err := plain.SimTEB(0)
	require.NoError(t, err)
	b, err := masked.SimTEB(0)
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), b.Hash())

	bad, err := maps.NewGridMask(4, 4, testutil.Ones(16))
	require.NoError(t, err)
	_, err = NewDiag(context.Background(), staticObs(t, 1), theory(t, testLMax), beam(t, testLMax), WithMask(bad))
	assert.ErrorIs(t, err, maps.ErrPixMismatch)
}

func TestFilterIsolatedFromCallerInputs(t *testing.T) {
	type inputs struct {
		w      []float64
		grid   maps.GridMask
		rmask  *maps.RMap
		transf *maps.TEBFFT
	}
	setup := func(t *testing.T) *inputs {
		pix := testPix()
		in := &inputs{w: testutil.Ones(pix.Size()), rmask: maps.NewRMap(pix)}
		for i := range in.w[:pix.Nx] {
			in.w[i] = 0.5
		}
		var err error
		in.grid, err = maps.NewGridMask(pix.Nx, pix.Ny, in.w)
		require.NoError(t, err)
		copy(in.rmask.Map, in.w)
		in.transf, err = beam(t, testLMax).OnGrid(pix)
		require.NoError(t, err)
		return in
	}

	tests := []struct {
		name   string
		mask   func(in *inputs) maps.Mask
		mutate func(in *inputs)
	}{
		{"grid weights", func(in *inputs) maps.Mask { return in.grid }, func(in *inputs) { clear(in.w); clear(in.grid.W) }},
		{"rmap values", func(in *inputs) maps.Mask { return in.rmask }, func(in *inputs) { clear(in.rmask.Map) }},
		{"transfer grid", func(in *inputs) maps.Mask { return in.grid }, func(in *inputs) { clear(in.transf.T) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := setup(t)
			d, err := NewDiag(context.Background(), staticObs(t, 1), theory(t, testLMax), in.transf,
				WithNoiseLevels(10, 14), WithMask(tt.mask(in)))
			require.NoError(t, err)
			before, err := d.SimTEB(0)
			require.NoError(t, err)
			maskHash, dict := d.FMask().Hash(), d.HashDict()

			tt.mutate(in)

			after, err := d.SimTEB(0)
			require.NoError(t, err)
			assert.Equal(t, before.Hash(), after.Hash())
			assert.Equal(t, maskHash, d.FMask().Hash())
			assert.Equal(t, dict, d.HashDict())
		})
	}
}

func TestLMaskCopiesBounds(t *testing.T) {
	lmax := 3000.0
	lm := NewLMask(newDiag(t), maps.LBounds{LMax: &lmax})
	want := lm.FL().Hash()
	dict := lm.HashDict()

	lmax = 100
	*lm.Bounds().LMax = 50
	assert.Equal(t, want, lm.FL().Hash())
	assert.Equal(t, dict, lm.HashDict())
}

func TestFMaskReturnsCopy(t *testing.T) {
	apod, err := maps.Apodize(testPix(), 0.5)
	require.NoError(t, err)
	d := newDiag(t, WithMask(apod))
	want := d.FMask().Hash()

	got := d.FMask().(maps.GridMask)
	clear(got.W)
	assert.Equal(t, want, d.FMask().Hash())
}

func TestLMaskCommutesWithComponents(t *testing.T) {
	inner := newDiag(t)
	tests := []struct {
		name   string
		bounds maps.LBounds
	}{
		{"none", maps.LBounds{}},
		{"lmin only", maps.LBounds{LMin: maps.Bound(1000)}},
		{"lmax only", maps.LBounds{LMax: maps.Bound(2500)}},
		{"lx band", maps.LBounds{LxMin: maps.Bound(300), LxMax: maps.Bound(3000)}},
		{"ly min", maps.LBounds{LyMin: maps.Bound(800)}},
		{"all", maps.LBounds{
			LMin: maps.Bound(100), LMax: maps.Bound(5000),
			LxMin: maps.Bound(0), LxMax: maps.Bound(4500),
			LyMin: maps.Bound(200), LyMax: maps.Bound(4000),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lm := NewLMask(inner, tc.bounds)
			assert.Equal(t, FLT(inner).LMasked(tc.bounds).F, FLT(lm).F)
			assert.Equal(t, FLE(inner).LMasked(tc.bounds).F, FLE(lm).F)
			assert.Equal(t, FLB(inner).LMasked(tc.bounds).F, FLB(lm).F)

			got, err := lm.SimTEB(1)
			require.NoError(t, err)
			raw, err := inner.SimTEB(1)
			require.NoError(t, err)
			assert.Equal(t, raw.LMasked(tc.bounds).Hash(), got.Hash())

			if tc.bounds.IsZero() {
				assert.Equal(t, inner.FL().Hash(), lm.FL().Hash())
			}
			assert.Equal(t, inner.FMask().Hash(), lm.FMask().Hash())
		})
	}
}

func TestLMaskHashDict(t *testing.T) {
	inner := newDiag(t)
	lm := NewLMask(inner, maps.LBounds{LMin: maps.Bound(100)})
	d := lm.HashDict()
	assert.Equal(t, inner.HashDict(), d["ivf_lib"])
	assert.Equal(t, 100.0, d["lmin"])
	assert.Nil(t, d["lymax"])
	assert.Equal(t, hashdict.Dict{"obs_lib": inner.ObsHashDict()}, d["super"])
}

func TestHashMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	obsLib := staticObs(t, 1)
	cl, transf := theory(t, testLMax), beam(t, testLMax)

	_, err := NewDiag(ctx, obsLib, cl, transf, WithNoiseLevels(10, 14), WithLibDir(dir))
	require.NoError(t, err)
	_, err = NewDiag(ctx, obsLib, cl, transf, WithNoiseLevels(10, 14), WithLibDir(dir))
	require.NoError(t, err)

	_, err = NewDiag(ctx, obsLib, cl, transf, WithNoiseLevels(10, 15), WithLibDir(dir))
	require.ErrorIs(t, err, hashdict.ErrMismatch)
	var mm *hashdict.MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "nlev_p", mm.Key)
}

func TestCheckHashDecorator(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	inner := newDiag(t)

	require.NoError(t, CheckHash(ctx, dir, NewLMask(inner, maps.LBounds{LMax: maps.Bound(3000)})))
	err := CheckHash(ctx, dir, NewLMask(inner, maps.LBounds{LMax: maps.Bound(3001)}))
	assert.ErrorIs(t, err, hashdict.ErrMismatch)
}

func TestConsistencyCheckAcrossRanks(t *testing.T) {
	const n = 4
	cl, transf := theory(t, testLMax), beam(t, testLMax)
	obsLib := staticObs(t, 1)

	run := func(dir string, nlevP func(rank int) float64) []error {
		g, err := coord.NewGroup(n)
		require.NoError(t, err)
		errs := make([]error, n)
		var eg errgroup.Group
		for r := range n {
			m, err := g.Member(r)
			require.NoError(t, err)
			eg.Go(func() error {
				_, errs[r] = NewDiag(context.Background(), obsLib, cl, transf,
					WithNoiseLevels(10, nlevP(r)), WithLibDir(dir), WithCoordinator(m))
				return nil
			})
		}
		require.NoError(t, eg.Wait())
		return errs
	}

	for _, err := range run(t.TempDir(), func(int) float64 { return 14 }) {
		assert.NoError(t, err)
	}

	errs := run(t.TempDir(), func(r int) float64 { return 14 + float64(r%2) })
	for r, err := range errs {
		assert.ErrorIs(t, err, hashdict.ErrMismatch, "rank %d", r)
	}
	var mm *hashdict.MismatchError
	require.ErrorAs(t, errs[1], &mm)
	assert.Equal(t, "nlev_p", mm.Key)
}

func TestOutOfRangeIndexPropagates(t *testing.T) {
	d := newDiag(t)
	_, err := d.SimTEB(5)
	assert.ErrorIs(t, err, obs.ErrIndexOutOfRange)
	_, err = SimB(d, -1)
	assert.ErrorIs(t, err, obs.ErrIndexOutOfRange)
	_, err = NewLMask(d, maps.LBounds{}).SimTEB(2)
	assert.ErrorIs(t, err, obs.ErrIndexOutOfRange)
}

func TestNilInputs(t *testing.T) {
	ctx := context.Background()
	_, err := NewDiag(ctx, nil, theory(t, 10), beam(t, 10))
	assert.ErrorIs(t, err, ErrNilInput)
	_, err = NewDiagEmp(ctx, nil, theory(t, 10), beam(t, 10))
	assert.ErrorIs(t, err, ErrNilInput)
	_, err = NewFullSky(ctx, nil, beam(t, 10))
	assert.ErrorIs(t, err, ErrNilInput)
}

func toyFullSky(t *testing.T, lmax int, opts ...Option) *FullSky {
	t.Helper()
	cl, err := spec.Diagonal(lmax, 2, 4, 8)
	require.NoError(t, err)
	ones, err := spec.Diagonal(lmax, 1, 1, 1)
	require.NoError(t, err)
	f, err := NewFullSky(context.Background(), cl, ones, opts...)
	require.NoError(t, err)
	return f
}

func TestFullSkyZeroNoiseToy(t *testing.T) {
	cl, err := spec.FromCls(2, spec.Cls{
		TT: []float64{1, 2, 4},
		EE: []float64{0.5, 0.25, 0.125},
		BB: []float64{0.1, 0.2, 0.3},
		TE: []float64{0.1, 0.2, 0.05},
	})
	require.NoError(t, err)
	transf := beam(t, 2)

	f, err := NewFullSky(context.Background(), cl, transf)
	require.NoError(t, err)

	want := cl.Inverse()
	for l := 0; l <= 2; l++ {
		got := f.FLFullSky().At(l)
		for i := range 3 {
			for j := range 3 {
				assert.InDelta(t, want.At(l)[i][j], got[i][j], 1e-12, "l=%d [%d][%d]", l, i, j)
			}
		}
	}
}

func TestFullSkyNoise(t *testing.T) {
	const lmax = 4
	cl, err := spec.Diagonal(lmax, 2, 4, 8)
	require.NoError(t, err)
	half, err := spec.Diagonal(lmax, 0.5, 0.5, 0.5)
	require.NoError(t, err)

	f, err := NewFullSky(context.Background(), cl, half, WithNoiseLevels(3000, 6000))
	require.NoError(t, err)

	tt, err := f.FLComponent(ComponentTT)
	require.NoError(t, err)
	bb, err := f.FLComponent(ComponentBB)
	require.NoError(t, err)
	for l := range lmax + 1 {
		assert.InDelta(t, 1/(2+4*spec.NlevToCl(3000)), tt[l], 1e-12)
		assert.InDelta(t, 1/(8+4*spec.NlevToCl(6000)), bb[l], 1e-12)
	}
}

func testAlm(t *testing.T, lmax int) *alm.Alm {
	t.Helper()
	a, err := alm.New(lmax)
	require.NoError(t, err)
	for i := range a.C {
		a.C[i] = complex(float64(i+1), -1)
	}
	return a
}

func TestIVFAlmLCut(t *testing.T) {
	const lmax = 20
	f := toyFullSky(t, lmax)
	a := testAlm(t, lmax)

	got, err := f.IVFAlmCut(a, ComponentEE, 10)
	require.NoError(t, err)
	for m := 0; m <= lmax; m++ {
		for l := m; l <= lmax; l++ {
			i := a.Index(l, m)
			if l < 10 {
				assert.Zero(t, got.C[i], "l=%d m=%d", l, m)
				continue
			}
			assert.InDelta(t, 0, cmplx.Abs(got.C[i]-0.25*a.C[i]), 1e-15, "l=%d m=%d", l, m)
		}
	}
}

func TestIVFAlmDropsMonopoleDipole(t *testing.T) {
	const lmax = 6
	a := testAlm(t, lmax)
	for _, which := range []string{ComponentTT, ComponentEE, ComponentBB} {
		got, err := toyFullSky(t, lmax).IVFAlmCut(a, which, 0)
		require.NoError(t, err)
		assert.Zero(t, got.C[a.Index(0, 0)])
		assert.Zero(t, got.C[a.Index(1, 0)])
		assert.Zero(t, got.C[a.Index(1, 1)])
		assert.NotZero(t, got.C[a.Index(2, 0)])
		assert.NotZero(t, got.C[a.Index(2, 2)])
	}

	// lcut below 2 keeps the unconditional cut.
	got, err := toyFullSky(t, lmax).IVFAlmCut(a, ComponentTT, 1)
	require.NoError(t, err)
	assert.Zero(t, got.C[a.Index(1, 0)])
}

func TestIVFAlmDefaultLCut(t *testing.T) {
	const lmax = 12
	f := toyFullSky(t, lmax, WithLCut(5))
	a := testAlm(t, lmax)

	got, err := f.IVFAlm(a, ComponentBB)
	require.NoError(t, err)
	assert.Zero(t, got.C[a.Index(4, 3)])
	assert.Equal(t, 0.125*a.C[a.Index(5, 3)], got.C[a.Index(5, 3)])

	got, err = f.IVFAlmCut(a, ComponentBB, 8)
	require.NoError(t, err)
	assert.Zero(t, got.C[a.Index(7, 0)])
	assert.Equal(t, 5, f.HashDict()["lcut"])
}

func TestIVFAlmCutOverridesDefault(t *testing.T) {
	const lmax = 12
	f := toyFullSky(t, lmax, WithLCut(10))
	a := testAlm(t, lmax)

	got, err := f.IVFAlmCut(a, ComponentBB, 0)
	require.NoError(t, err)
	for l := 2; l <= lmax; l++ {
		i := a.Index(l, 0)
		assert.InDelta(t, 0, cmplx.Abs(got.C[i]-0.125*a.C[i]), 1e-12, "l=%d", l)
	}
	assert.Zero(t, got.C[a.Index(1, 0)])

	got, err = f.IVFAlm(a, ComponentBB)
	require.NoError(t, err)
	assert.Zero(t, got.C[a.Index(5, 0)])
	assert.NotZero(t, got.C[a.Index(10, 0)])
}

func TestIVFAlmBeyondFilterLMax(t *testing.T) {
	f := toyFullSky(t, 4)
	a := testAlm(t, 8)
	got, err := f.IVFAlm(a, ComponentTT)
	require.NoError(t, err)
	assert.Equal(t, 0.5*a.C[a.Index(4, 0)], got.C[a.Index(4, 0)])
	assert.Zero(t, got.C[a.Index(5, 0)])
}

func TestUnknownComponent(t *testing.T) {
	f := toyFullSky(t, 4)
	_, err := f.IVFAlm(testAlm(t, 4), "clxx")
	assert.ErrorIs(t, err, ErrUnknownComponent)
	_, err = f.FLComponent("clte")
	assert.ErrorIs(t, err, ErrUnknownComponent)

	_, err = f.IVFAlmCut(testAlm(t, 4), ComponentTT, -1)
	assert.ErrorIs(t, err, ErrInvalidLCut)
}

func TestFullSkyHashCheck(t *testing.T) {
	dir := t.TempDir()
	toyFullSky(t, 4, WithLibDir(dir))

	cl, _ := spec.Diagonal(4, 2, 4, 8)
	ones, _ := spec.Diagonal(4, 1, 1, 1)
	_, err := NewFullSky(context.Background(), cl, ones, WithLibDir(dir), WithLCut(3))
	assert.ErrorIs(t, err, hashdict.ErrMismatch)
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	again, err := NewMetrics(reg)
	require.NoError(t, err)

	d := newDiag(t)
	lib := Instrument(d, "diag", m)
	_, err = lib.SimTEB(0)
	require.NoError(t, err)
	_, err = lib.SimTEB(9)
	require.ErrorIs(t, err, obs.ErrIndexOutOfRange)

	assert.Equal(t, 1.0, promtest.ToFloat64(again.calls.WithLabelValues("diag", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.calls.WithLabelValues("diag", "error")))
	assert.Equal(t, d.HashDict(), lib.HashDict())
	assert.Same(t, Library(d), Instrument(d, "x", nil))
}
