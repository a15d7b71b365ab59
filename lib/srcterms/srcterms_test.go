package srcterms

import (
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/phil-mansfield/amrpar/lib/amr"
	"github.com/phil-mansfield/amrpar/lib/compress"
	"github.com/phil-mansfield/amrpar/lib/eq"
	"github.com/phil-mansfield/amrpar/lib/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPatches(t *testing.T) []*amr.Patch {
	h, err := amr.NewHierarchy(
		amr.Box{Size: [3]float64{2, 1, 1}, Periodic: true},
		[3]int{2, 1, 1}, 0, 1,
	)
	require.NoError(t, err)
	h.AllocateFluid(0)

	gen := compress.NewRNG(1337)
	patches := h.LocalLeaves(0)
	for _, p := range patches {
		for c := 0; c < amr.CellsPerPatch; c++ {
			dens := 0.01 + 5*gen.Uniform()
			p.Fluid[amr.Dens*amr.CellsPerPatch+c] = dens
			p.Fluid[amr.MomX*amr.CellsPerPatch+c] = dens * (gen.Uniform() - 0.5)
			p.Fluid[amr.MomY*amr.CellsPerPatch+c] = dens * (gen.Uniform() - 0.5)
			p.Fluid[amr.MomZ*amr.CellsPerPatch+c] = dens * (gen.Uniform() - 0.5)
			p.Fluid[amr.Engy*amr.CellsPerPatch+c] = dens * (1 + gen.Uniform())
			p.Fluid[amr.Ye*amr.CellsPerPatch+c] = dens * 0.5
		}
	}
	return patches
}

func testConfig(t *testing.T, b Backend) Config {
	eos, err := IdealGas(5.0 / 3)
	require.NoError(t, err)
	return Config{
		Modules: []string{"Deleptonization", "Accretion"},
		Backend: b,
		Params: Params{
			Deleptonization: DeleptonizationParams{
				Rho1: 0.1, Rho2: 10, Ye1: 0.5, Ye2: 0.3, Yec: 0.03,
			},
			Accretion: AccretionParams{
				Radius: 0.3, DensThreshold: 1,
				Locate: func() ([3]float64, bool) {
					return [3]float64{0.5, 0.5, 0.5}, true
				},
			},
		},
		Terms:   NewTerms(1, 1, 1),
		EoS:     eos,
		MinDens: 1e-6,
	}
}

func fluid(patches []*amr.Patch) []float64 {
	out := []float64{}
	for _, p := range patches {
		out = append(out, p.Fluid...)
	}
	return out
}

func TestBackendsBitIdentical(t *testing.T) {
	backends := []Backend{
		CPU{1}, CPU{2}, CPU{8}, Device{}, Device{7},
	}

	var refFluid []float64
	var refAcc record.Accumulator
	for i, b := range backends {
		patches := testPatches(t)
		s, err := NewSolver(DefaultRegistry(), testConfig(t, b))
		require.NoError(t, err)

		acc := &record.Accumulator{}
		for step := 0; step < 3; step++ {
			require.NoError(t, s.Advance(0, patches, 0.1,
				0.1*float64(step+1), 0.1*float64(step), acc))
		}
		s.End()

		if i == 0 {
			refFluid, refAcc = fluid(patches), *acc
			assert.True(t, acc.Mass > 0)
			continue
		}

		name := fmt.Sprintf("%s %d", b.Name(), i)
		assert.True(t, eq.BitsFloat64s(refFluid, fluid(patches)),
			"fluid differs for backend %s", name)
		assert.True(t, eq.BitsFloat64s(refAcc.Slice(), acc.Slice()),
			"sinks differ for backend %s", name)
	}
}

func TestAccretionConservesMass(t *testing.T) {
	patches := testPatches(t)
	before := 0.0
	dV := math.Pow(patches[0].CellWidth()[0], 3)
	for _, p := range patches {
		for _, rho := range p.Field(amr.Dens) {
			before += rho * dV
		}
	}

	cfg := testConfig(t, CPU{4})
	cfg.Modules = []string{"Accretion"}
	s, err := NewSolver(DefaultRegistry(), cfg)
	require.NoError(t, err)
	acc := &record.Accumulator{}
	require.NoError(t, s.Advance(0, patches, 0.1, 0.1, 0, acc))

	after := 0.0
	for _, p := range patches {
		for c, rho := range p.Field(amr.Dens) {
			after += rho * dV
			i, j, k := amr.CellCoords(c)
			x := p.CellCenter(i, j, k)
			r := x.Sub([3]float64{0.5, 0.5, 0.5}).Len()
			if r < 0.3 && rho > 1 {
				t.Errorf("Cell at %.3f with r = %.3f still has dens = %g.",
					x, r, rho)
			}
		}
	}

	assert.True(t, acc.Mass > 0)
	assert.InDelta(t, before, after+acc.Mass, 1e-9*before)
}

func TestAccretionMissingSink(t *testing.T) {
	patches := testPatches(t)
	orig := fluid(patches)

	cfg := testConfig(t, CPU{1})
	cfg.Modules = []string{"Accretion"}
	cfg.Params.Accretion.Locate = func() ([3]float64, bool) {
		return [3]float64{}, false
	}
	s, err := NewSolver(DefaultRegistry(), cfg)
	require.NoError(t, err)
	acc := &record.Accumulator{}
	require.NoError(t, s.Advance(0, patches, 0.1, 0.1, 0, acc))

	assert.True(t, eq.BitsFloat64s(orig, fluid(patches)))
	assert.Equal(t, record.Accumulator{}, *acc)
}

func TestDeleptonization(t *testing.T) {
	l1, l2 := math.Log10(0.1), math.Log10(10)
	assert.InDelta(t, 0.5, YeOfRho(-3, l1, l2, 0.5, 0.3, 0.03), 1e-12)
	assert.InDelta(t, 0.3, YeOfRho(3, l1, l2, 0.5, 0.3, 0.03), 1e-12)
	assert.InDelta(t, 0.43, YeOfRho(0, l1, l2, 0.5, 0.3, 0.03), 1e-12)

	patches := testPatches(t)
	cfg := testConfig(t, CPU{1})
	cfg.Modules = []string{"Deleptonization"}
	s, err := NewSolver(DefaultRegistry(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Advance(0, patches, 0.1, 0.1, 0, &record.Accumulator{}))

	for _, p := range patches {
		dens, ye := p.Field(amr.Dens), p.Field(amr.Ye)
		for c := range dens {
			expected := math.Min(0.5,
				YeOfRho(math.Log10(dens[c]), l1, l2, 0.5, 0.3, 0.03))
			assert.InDelta(t, expected, ye[c]/dens[c], 1e-12)
		}
	}

	_, err = NewDeleptonization(DeleptonizationParams{
		Rho1: 10, Rho2: 1, Ye1: 0.5, Ye2: 0.3,
	})
	assert.Error(t, err)
}

func TestBindTwice(t *testing.T) {
	mod, err := NewDeleptonization(testConfig(t, CPU{}).Params.Deleptonization)
	require.NoError(t, err)
	term := &Term{Module: mod}
	assert.NoError(t, term.Bind(CPU{1}))
	assert.Error(t, term.Bind(Device{}))
	assert.Equal(t, "cpu", term.Backend.Name())
}

func TestNewSolverErrors(t *testing.T) {
	cfg := testConfig(t, CPU{1})
	cfg.Modules = []string{"Deleptonization", "Deleptonization"}
	_, err := NewSolver(DefaultRegistry(), cfg)
	assert.Error(t, err)

	cfg.Modules = []string{"Cooling"}
	_, err = NewSolver(DefaultRegistry(), cfg)
	assert.Error(t, err)

	cfg.Modules = []string{"Accretion"}
	cfg.Params.Accretion.Radius = -1
	_, err = NewSolver(DefaultRegistry(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t, nil)
	_, err = NewSolver(DefaultRegistry(), cfg)
	assert.Error(t, err)

	_, err = NewBackend("fpga", 1, 1)
	assert.Error(t, err)
	b, err := NewBackend("GPU", 1, 32)
	assert.NoError(t, err)
	assert.Equal(t, "device", b.Name())
}

// orderModule records whether any kernel ran before its hook.
type orderModule struct {
	name      string
	kernelRan *int32
	early     *int32
}

func (m *orderModule) Name() string                       { return m.name }
func (m *orderModule) NAux() (nFlt, nInt int)             { return 1, 1 }
func (m *orderModule) SetAuxArray([]float64, []int) error { return nil }
func (m *orderModule) End()                               {}

func (m *orderModule) SetFunc(b Backend) (Func, error) {
	return func(c *Cell, flt []float64, in []int) {
		atomic.StoreInt32(m.kernelRan, 1)
	}, nil
}

func (m *orderModule) WorkBeforeMajorFunc(
	lv int, timeNew, timeOld, dt float64, flt []float64, in []int,
) error {
	if atomic.LoadInt32(m.kernelRan) != 0 {
		atomic.StoreInt32(m.early, 1)
	}
	return nil
}

func TestHooksBeforeKernels(t *testing.T) {
	kernelRan, early := int32(0), int32(0)
	reg := Registry{}
	for _, name := range []string{"A", "B", "C"} {
		name := name
		reg[name] = func(*Params) (Module, error) {
			return &orderModule{name, &kernelRan, &early}, nil
		}
	}

	cfg := testConfig(t, Device{})
	cfg.Modules = []string{"A", "B", "C"}
	s, err := NewSolver(reg, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, len(s.Terms()))

	require.NoError(t, s.Advance(0, testPatches(t), 0.1, 0.1, 0,
		&record.Accumulator{}))
	assert.Equal(t, int32(1), kernelRan)
	assert.Equal(t, int32(0), early)
}

func TestIdealGas(t *testing.T) {
	eos, err := IdealGas(1.4)
	require.NoError(t, err)
	pres := eos.DensEint2Pres(2, 5, nil, eos.AuxFlt, eos.AuxInt)
	assert.InDelta(t, 2.0, pres, 1e-12)
	assert.InDelta(t, 5.0,
		eos.DensPres2Eint(2, pres, nil, eos.AuxFlt, eos.AuxInt), 1e-12)
	assert.InDelta(t, 1.4,
		eos.DensPres2CSqr(2, pres, nil, eos.AuxFlt, eos.AuxInt), 1e-12)

	_, err = IdealGas(1)
	assert.Error(t, err)
}
