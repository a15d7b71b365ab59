package srcterms

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/amr"
)

// AccretionParams configures the sink-particle accretion term. Radius and
// DensThreshold are in code units.
type AccretionParams struct {
	Radius, DensThreshold float64
	// Locate returns the current position of the sink. It is called once
	// per step by the pre-step hook and may use collectives, since every
	// rank advances in lockstep. found is false if the sink doesn't exist.
	Locate func() (pos [3]float64, found bool)
}

// Accretion removes all gas above DensThreshold from cells within Radius of
// the sink and adds what was removed to the cell's Sink.
//
// AuxFlt: [sink x, sink y, sink z, Radius, DensThreshold, active].
type Accretion struct {
	p AccretionParams
}

var _ Module = &Accretion{}

// NewAccretion checks p and creates the module.
func NewAccretion(p AccretionParams) (*Accretion, error) {
	if p.Radius <= 0 {
		return nil, fmt.Errorf("Accretion needs a positive Radius, "+
			"but Radius = %g.", p.Radius)
	} else if p.DensThreshold < 0 {
		return nil, fmt.Errorf("Accretion needs a non-negative "+
			"DensThreshold, but DensThreshold = %g.", p.DensThreshold)
	} else if p.Locate == nil {
		return nil, fmt.Errorf("Accretion was not given a way to locate " +
			"its sink.")
	}
	return &Accretion{p}, nil
}

func (*Accretion) Name() string          { return "Accretion" }
func (*Accretion) NAux() (nFlt, nInt int) { return 6, 0 }

func (a *Accretion) SetAuxArray(flt []float64, in []int) error {
	flt[0], flt[1], flt[2] = 0, 0, 0
	flt[3], flt[4], flt[5] = a.p.Radius, a.p.DensThreshold, 0
	return nil
}

func (*Accretion) SetFunc(b Backend) (Func, error) {
	if !b.Available() {
		return nil, fmt.Errorf("The '%s' backend isn't available.", b.Name())
	}
	return accrete, nil
}

// WorkBeforeMajorFunc moves the sink to wherever Locate says it is.
func (a *Accretion) WorkBeforeMajorFunc(
	lv int, timeNew, timeOld, dt float64, flt []float64, in []int,
) error {
	pos, found := a.p.Locate()
	if !found {
		flt[5] = 0
		return nil
	}
	flt[0], flt[1], flt[2], flt[5] = pos[0], pos[1], pos[2], 1
	return nil
}

func (*Accretion) End() {}

func accrete(c *Cell, flt []float64, _ []int) {
	if flt[5] == 0 {
		return
	}
	dx, dy, dz := c.X-flt[0], c.Y-flt[1], c.Z-flt[2]
	if dx*dx+dy*dy+dz*dz >= flt[3]*flt[3] {
		return
	}

	thresh := flt[4]
	if thresh < c.MinDens {
		thresh = c.MinDens
	}
	dens := c.Fluid[amr.Dens]
	if dens <= thresh {
		return
	}

	// Scaling every conserved variable by the same factor leaves the
	// velocity and specific energies unchanged.
	keep := thresh / dens
	lose := 1 - keep
	dV := c.Dh * c.Dh * c.Dh

	c.Sink.Mass += lose * dens * dV
	c.Sink.Mom[0] += lose * c.Fluid[amr.MomX] * dV
	c.Sink.Mom[1] += lose * c.Fluid[amr.MomY] * dV
	c.Sink.Mom[2] += lose * c.Fluid[amr.MomZ] * dV
	c.Sink.Energy += lose * c.Fluid[amr.Engy] * dV

	c.Fluid[amr.Dens] = thresh
	c.Fluid[amr.MomX] *= keep
	c.Fluid[amr.MomY] *= keep
	c.Fluid[amr.MomZ] *= keep
	c.Fluid[amr.Engy] *= keep
	c.Fluid[amr.Ye] *= keep
}
