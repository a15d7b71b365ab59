package srcterms

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/amrpar/lib/amr"
)

// DeleptonizationParams parameterizes the electron fraction as a function
// of density, Ye(rho) (Liebendoerfer 2005). Densities are in g/cm^3.
type DeleptonizationParams struct {
	Rho1, Rho2    float64
	Ye1, Ye2, Yec float64
}

// Deleptonization lowers the electron fraction of each cell to Ye(rho)
// whenever that is smaller than the cell's current value. The electron
// fraction is stored as the passive scalar dens*Ye.
//
// AuxFlt: [log10(Rho1), log10(Rho2), Ye1, Ye2, Yec].
type Deleptonization struct {
	p DeleptonizationParams
}

var _ Module = &Deleptonization{}

// NewDeleptonization checks p and creates the module.
func NewDeleptonization(p DeleptonizationParams) (*Deleptonization, error) {
	if p.Rho1 <= 0 || p.Rho2 <= p.Rho1 {
		return nil, fmt.Errorf("Deleptonization needs 0 < Rho1 < Rho2, but "+
			"Rho1 = %g and Rho2 = %g.", p.Rho1, p.Rho2)
	}
	for _, ye := range []float64{p.Ye1, p.Ye2} {
		if ye <= 0 || ye > 1 {
			return nil, fmt.Errorf("Deleptonization needs electron "+
				"fractions in (0, 1], but Ye1 = %g and Ye2 = %g.",
				p.Ye1, p.Ye2)
		}
	}
	return &Deleptonization{p}, nil
}

func (*Deleptonization) Name() string          { return "Deleptonization" }
func (*Deleptonization) NAux() (nFlt, nInt int) { return 5, 0 }

func (d *Deleptonization) SetAuxArray(flt []float64, in []int) error {
	flt[0], flt[1] = math.Log10(d.p.Rho1), math.Log10(d.p.Rho2)
	flt[2], flt[3], flt[4] = d.p.Ye1, d.p.Ye2, d.p.Yec
	return nil
}

func (*Deleptonization) SetFunc(b Backend) (Func, error) {
	if !b.Available() {
		return nil, fmt.Errorf("The '%s' backend isn't available.", b.Name())
	}
	return deleptonize, nil
}

func (*Deleptonization) WorkBeforeMajorFunc(
	lv int, timeNew, timeOld, dt float64, flt []float64, in []int,
) error {
	return nil
}

func (*Deleptonization) End() {}

// YeOfRho returns the parameterized electron fraction at log10 density
// lRho.
func YeOfRho(lRho, lRho1, lRho2, ye1, ye2, yec float64) float64 {
	x := (2*lRho - lRho2 - lRho1) / (lRho2 - lRho1)
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	ax := math.Abs(x)
	return 0.5*(ye2+ye1) + 0.5*x*(ye2-ye1) +
		yec*(1-ax+4*ax*(ax-0.5)*(ax-1))
}

func deleptonize(c *Cell, flt []float64, _ []int) {
	dens := c.Fluid[amr.Dens]
	if dens <= 0 {
		return
	}

	lRho := math.Log10(dens * c.Terms.UnitD)
	ye := YeOfRho(lRho, flt[0], flt[1], flt[2], flt[3], flt[4])
	if ye*dens < c.Fluid[amr.Ye] {
		c.Fluid[amr.Ye] = ye * dens
	}
}
