/*package srcterms contains the source-term solver: a set of physics modules
which each update the fluid in every cell through a single per-cell kernel.

Every module supplies the same lifecycle: its auxiliary arrays are filled
once by SetAuxArray, its kernel is bound to exactly one Backend by SetFunc,
WorkBeforeMajorFunc runs once per step (single-threaded) before any kernel
runs, and End releases whatever the module holds. Kernels receive everything
they read through their arguments. They must not allocate, must not touch
mutable state outside of the Cell they're given, and must produce
bit-identical results no matter which thread or lane runs them.
*/
package srcterms

import (
	"github.com/phil-mansfield/amrpar/lib/amr"
	"github.com/phil-mansfield/amrpar/lib/record"
)

// Terms holds the parameters shared by every source term.
type Terms struct {
	// Code units in cgs.
	UnitL, UnitM, UnitT float64
	// UnitV and UnitD are derived from the units above by NewTerms.
	UnitV, UnitD float64
}

// NewTerms creates a Terms from the length, mass, and time units.
func NewTerms(unitL, unitM, unitT float64) *Terms {
	return &Terms{
		UnitL: unitL, UnitM: unitM, UnitT: unitT,
		UnitV: unitL / unitT, UnitD: unitM / (unitL * unitL * unitL),
	}
}

// Cell is the input and output of a kernel.
type Cell struct {
	// Fluid is read and updated in place.
	Fluid [amr.NFluid]float64
	// B is the cell-centered magnetic field.
	B     [3]float64
	Terms *Terms
	// Dt is the time step and Dh the cell width.
	Dt, Dh  float64
	X, Y, Z float64
	// The kernel advances the cell from TimeOld to TimeNew.
	TimeNew, TimeOld          float64
	MinDens, MinPres, MinEint float64
	EoS                       *EoS
	// Sink receives whatever the kernel removes from the gas. It is zeroed
	// before every call.
	Sink *record.Accumulator
}

// Func is a per-cell kernel.
type Func func(c *Cell, auxFlt []float64, auxInt []int)

// Module is a single physics module.
type Module interface {
	Name() string
	// NAux returns the lengths of the module's auxiliary arrays.
	NAux() (nFlt, nInt int)
	// SetAuxArray fills the auxiliary arrays. It is called once, before
	// SetFunc.
	SetAuxArray(flt []float64, in []int) error
	// SetFunc returns the kernel to run on backend b.
	SetFunc(b Backend) (Func, error)
	// WorkBeforeMajorFunc runs single-threaded before the kernel is
	// dispatched for level lv and may update the auxiliary arrays.
	WorkBeforeMajorFunc(
		lv int, timeNew, timeOld, dt float64, flt []float64, in []int,
	) error
	// End releases any resources held by the module.
	End()
}
