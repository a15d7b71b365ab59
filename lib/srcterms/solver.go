package srcterms

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/amr"
	"github.com/phil-mansfield/amrpar/lib/build"
	"github.com/phil-mansfield/amrpar/lib/record"
)

// Params holds the configuration of every module in the default registry.
type Params struct {
	Deleptonization DeleptonizationParams
	Accretion       AccretionParams
}

// Constructor creates a module from its parameters.
type Constructor func(p *Params) (Module, error)

// Registry maps module names to constructors.
type Registry map[string]Constructor

// DefaultRegistry returns a registry containing every built-in module.
func DefaultRegistry() Registry {
	return Registry{
		"Deleptonization": func(p *Params) (Module, error) {
			return NewDeleptonization(p.Deleptonization)
		},
		"Accretion": func(p *Params) (Module, error) {
			return NewAccretion(p.Accretion)
		},
	}
}

// Term is a module bound to a backend, along with its auxiliary arrays.
type Term struct {
	Module  Module
	Backend Backend
	Func    Func
	AuxFlt  []float64
	AuxInt  []int
}

// Bind selects the kernel for backend b. A term can only be bound once.
func (t *Term) Bind(b Backend) error {
	if t.Func != nil {
		return fmt.Errorf("The source term %s is already bound to the '%s' "+
			"backend and cannot also be bound to '%s'.", t.Module.Name(),
			t.Backend.Name(), b.Name())
	}
	f, err := t.Module.SetFunc(b)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("The source term %s has no kernel for the '%s' "+
			"backend.", t.Module.Name(), b.Name())
	}
	t.Func, t.Backend = f, b
	return nil
}

// Config configures a Solver.
type Config struct {
	// Modules lists the names of the modules to run, in order.
	Modules []string
	Backend Backend
	Params  Params
	Terms   *Terms
	EoS     *EoS
	MinDens, MinPres, MinEint float64
}

// Solver owns the bound source terms and dispatches their kernels.
type Solver struct {
	terms []*Term
	cfg   Config

	cells [amr.CellsPerPatch]Cell
	sinks [amr.CellsPerPatch]record.Accumulator
}

// NewSolver resolves every module in cfg.Modules with reg, fills its
// auxiliary arrays, and binds it to cfg.Backend.
func NewSolver(reg Registry, cfg Config) (*Solver, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("No source-term backend was selected.")
	} else if cfg.Terms == nil {
		return nil, fmt.Errorf("No source-term unit system was given.")
	} else if cfg.EoS == nil {
		return nil, fmt.Errorf("No equation of state was given.")
	}

	s := &Solver{cfg: cfg}
	for _, name := range cfg.Modules {
		for _, t := range s.terms {
			if t.Module.Name() == name {
				return nil, fmt.Errorf("The source term %s is enabled "+
					"twice.", name)
			}
		}

		con, ok := reg[name]
		if !ok {
			return nil, fmt.Errorf("Unrecognized source term '%s'.", name)
		}
		mod, err := con(&cfg.Params)
		if err != nil {
			return nil, err
		}

		nFlt, nInt := mod.NAux()
		t := &Term{
			Module: mod,
			AuxFlt: make([]float64, nFlt), AuxInt: make([]int, nInt),
		}
		if err = mod.SetAuxArray(t.AuxFlt, t.AuxInt); err != nil {
			return nil, err
		}
		if err = t.Bind(cfg.Backend); err != nil {
			return nil, err
		}
		s.terms = append(s.terms, t)
	}

	return s, nil
}

// Terms returns the solver's bound terms.
func (s *Solver) Terms() []*Term { return s.terms }

// checkAux panics if a term's auxiliary arrays are missing. It only runs in
// debug builds.
func checkAux(t *Term) {
	nFlt, nInt := t.Module.NAux()
	if t.AuxFlt == nil || len(t.AuxFlt) != nFlt {
		panic(fmt.Sprintf("Internal error: AuxFlt has length %d in %s, but "+
			"%d is required.", len(t.AuxFlt), t.Module.Name(), nFlt))
	} else if t.AuxInt == nil || len(t.AuxInt) != nInt {
		panic(fmt.Sprintf("Internal error: AuxInt has length %d in %s, but "+
			"%d is required.", len(t.AuxInt), t.Module.Name(), nInt))
	} else if t.Func == nil {
		panic(fmt.Sprintf("Internal error: %s was never bound to a "+
			"backend.", t.Module.Name()))
	}
}

// Advance runs every source term on the given patches, advancing them from
// timeOld to timeNew. Every pre-step hook runs before any kernel. Anything
// removed from the gas is added to acc in cell order, so the result doesn't
// depend on how cells were scheduled.
func (s *Solver) Advance(
	lv int, patches []*amr.Patch, dt, timeNew, timeOld float64,
	acc *record.Accumulator,
) error {
	for _, t := range s.terms {
		err := t.Module.WorkBeforeMajorFunc(
			lv, timeNew, timeOld, dt, t.AuxFlt, t.AuxInt,
		)
		if err != nil {
			return err
		}
	}

	for _, p := range patches {
		if p.Fluid == nil {
			panic(fmt.Sprintf("Internal error: patch at level %d, corner %d "+
				"has no fluid.", p.Level, p.Corner))
		}
		for _, t := range s.terms {
			if build.Debug {
				checkAux(t)
			}
			s.dispatch(t, p, dt, timeNew, timeOld)
			for i := range s.sinks {
				acc.Add(&s.sinks[i])
			}
		}
	}

	return nil
}

func (s *Solver) dispatch(t *Term, p *amr.Patch, dt, timeNew, timeOld float64) {
	dh := p.CellWidth()[0]
	f, flt, in := t.Func, t.AuxFlt, t.AuxInt

	t.Backend.Launch(amr.CellsPerPatch, func(idx int) {
		c := &s.cells[idx]
		for v := 0; v < amr.NFluid; v++ {
			c.Fluid[v] = p.Fluid[v*amr.CellsPerPatch+idx]
		}
		i, j, k := amr.CellCoords(idx)
		x := p.CellCenter(i, j, k)
		c.X, c.Y, c.Z = x[0], x[1], x[2]
		c.Terms, c.EoS = s.cfg.Terms, s.cfg.EoS
		c.Dt, c.Dh, c.TimeNew, c.TimeOld = dt, dh, timeNew, timeOld
		c.MinDens, c.MinPres, c.MinEint =
			s.cfg.MinDens, s.cfg.MinPres, s.cfg.MinEint
		s.sinks[idx] = record.Accumulator{}
		c.Sink = &s.sinks[idx]

		f(c, flt, in)

		for v := 0; v < amr.NFluid; v++ {
			p.Fluid[v*amr.CellsPerPatch+idx] = c.Fluid[v]
		}
	})
}

// End releases every module.
func (s *Solver) End() {
	for _, t := range s.terms {
		t.Module.End()
	}
	s.terms = nil
}
