package srcterms

import (
	"fmt"
)

// EoSFunc is an equation of state routine. passive holds the cell's passive
// scalars.
type EoSFunc func(
	dens, x float64, passive []float64, auxFlt []float64, auxInt []int,
) float64

// EoS bundles the equation of state routines with their auxiliary arrays.
type EoS struct {
	// DensEint2Pres maps density and internal energy density to pressure.
	DensEint2Pres EoSFunc
	// DensPres2Eint maps density and pressure to internal energy density.
	DensPres2Eint EoSFunc
	// DensPres2CSqr maps density and pressure to the squared sound speed.
	DensPres2CSqr EoSFunc
	AuxFlt        []float64
	AuxInt        []int
}

// IdealGas returns an ideal gas equation of state with adiabatic index
// gamma. AuxFlt holds [gamma, gamma - 1, 1/(gamma - 1)].
func IdealGas(gamma float64) (*EoS, error) {
	if gamma <= 1 {
		return nil, fmt.Errorf("The adiabatic index must be larger than "+
			"1, but Gamma = %g.", gamma)
	}

	return &EoS{
		DensEint2Pres: func(dens, eint float64, _ []float64,
			flt []float64, _ []int) float64 {
			return eint * flt[1]
		},
		DensPres2Eint: func(dens, pres float64, _ []float64,
			flt []float64, _ []int) float64 {
			return pres * flt[2]
		},
		DensPres2CSqr: func(dens, pres float64, _ []float64,
			flt []float64, _ []int) float64 {
			return flt[0] * pres / dens
		},
		AuxFlt: []float64{gamma, gamma - 1, 1 / (gamma - 1)},
	}, nil
}
