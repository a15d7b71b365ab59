/*package sim is amrpar's run driver. It builds the particle sources, the
patch hierarchy, the source-term solver, and the diagnostics from a config
file and then steps the run forward.

Everything in a Sim is collective: every rank creates its Sim from the same
config and calls every method in the same order.
*/
package sim

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phil-mansfield/amrpar/lib/amr"
	"github.com/phil-mansfield/amrpar/lib/build"
	"github.com/phil-mansfield/amrpar/lib/config"
	"github.com/phil-mansfield/amrpar/lib/exchange"
	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/particles"
	"github.com/phil-mansfield/amrpar/lib/record"
	"github.com/phil-mansfield/amrpar/lib/srcterms"
)

// Sim is the state of a run on one rank.
type Sim struct {
	Comm   mpi.Comm
	Config *config.Config
	Msg    Messenger

	Repo   *particles.Repository
	H      *amr.Hierarchy
	Layout *exchange.Layout
	Solver *srcterms.Solver
	// Acc collects whatever sink terms remove from the gas on this rank.
	Acc record.Accumulator

	Recorders []record.Recorder
	Cadence   *record.Cadence

	Time float64
	Step int

	flag amr.Flag
	db   *record.Database
}

// New sets up a run: the gas initial conditions, the particles, the initial
// refinement, and the diagnostics. It must be called collectively.
func New(comm mpi.Comm, c *config.Config) (*Sim, error) {
	rank := comm.Rank()
	s := &Sim{
		Comm: comm, Config: c, Msg: Messenger{rank},
		Repo: particles.NewRepository(), Time: c.Run.Time,
	}

	box := amr.Box{
		Size:     [3]float64{c.Box.X, c.Box.Y, c.Box.Z},
		Periodic: c.Box.Periodic,
	}
	nBase := [3]int{c.Box.NBaseX, c.Box.NBaseY, c.Box.NBaseZ}
	var err error
	s.H, err = amr.NewHierarchy(box, nBase, c.Box.MaxLevel, comm.Size())
	if err != nil {
		return nil, err
	}
	s.flag = refineFlag(c)

	s.Solver, err = NewSolver(c, func() ([3]float64, bool) {
		return record.Locate(comm, s.Repo, c.Accretion.Source)
	})
	if err != nil {
		return nil, err
	}

	s.H.AllocateFluid(rank)
	if err = s.SetGridIC(s.H.LocalLeaves(rank)); err != nil {
		return nil, err
	}

	sources, err := Sources(c)
	if err != nil {
		return nil, err
	}
	s.Msg.Rank0f("Loading %d particles from %d sources.",
		c.Run.NParAllRank, len(sources))
	s.Layout, err = exchange.Load(comm, s.Repo, sources, exchange.Options{
		Units: Units(c), NParAllRank: c.Run.NParAllRank, Time: s.Time,
	})
	if err != nil {
		return nil, err
	}

	if err = s.Regrid(); err != nil {
		return nil, err
	}
	s.Msg.Rank0f("Initial hierarchy has %d levels and %d leaves.",
		s.H.NLevel(), len(s.H.Leaves()))

	if err = s.initRecords(len(sources)); err != nil {
		return nil, err
	}

	return s, nil
}

// refineFlag builds the refinement criteria in the [Box] section.
func refineFlag(c *config.Config) amr.Flag {
	flag := amr.AnyFlag{}
	if c.Box.RefineRadius > 0 {
		flag = append(flag, amr.RadiusFlag{
			Center: mgl64.Vec3{
				c.Box.RefineCenterX, c.Box.RefineCenterY, c.Box.RefineCenterZ,
			},
			Threshold: c.Box.RefineRadius,
		})
	}
	if c.Box.RefineParticles > 0 {
		flag = append(flag, amr.ParticleFlag{Min: c.Box.RefineParticles})
	}
	return flag
}

// NewSolver creates the source-term solver described by c. locate finds
// the accretion sink.
func NewSolver(
	c *config.Config, locate func() ([3]float64, bool),
) (*srcterms.Solver, error) {
	threads := c.Run.Threads
	if threads < 0 {
		threads = 0
	}
	backend, err := srcterms.NewBackend(c.SrcTerms.Backend, threads,
		c.SrcTerms.Lanes)
	if err != nil {
		return nil, err
	}
	eos, err := srcterms.IdealGas(c.SrcTerms.Gamma)
	if err != nil {
		return nil, err
	}

	return srcterms.NewSolver(srcterms.DefaultRegistry(), srcterms.Config{
		Modules: c.SrcTerms.ModuleNames(),
		Backend: backend,
		Params: srcterms.Params{
			Deleptonization: srcterms.DeleptonizationParams{
				Rho1: c.Deleptonization.Rho1, Rho2: c.Deleptonization.Rho2,
				Ye1: c.Deleptonization.Ye1, Ye2: c.Deleptonization.Ye2,
				Yec: c.Deleptonization.Yec,
			},
			Accretion: srcterms.AccretionParams{
				Radius:        c.Accretion.Radius,
				DensThreshold: c.Accretion.DensThreshold,
				Locate:        locate,
			},
		},
		Terms:   srcterms.NewTerms(c.Units.Length, c.Units.Mass, c.Units.Time),
		EoS:     eos,
		MinDens: c.SrcTerms.MinDens,
		MinPres: c.SrcTerms.MinPres,
		MinEint: c.SrcTerms.MinEint,
	})
}

// SetGridIC fills the given patches with the uniform gas state in [Gas].
func (s *Sim) SetGridIC(patches []*amr.Patch) error {
	g := &s.Config.Gas
	eos, err := srcterms.IdealGas(s.Config.SrcTerms.Gamma)
	if err != nil {
		return err
	}
	if g.Dens <= 0 || g.Pres < 0 {
		return fmt.Errorf("The initial gas needs Dens > 0 and Pres >= 0, "+
			"but Dens = %g and Pres = %g.", g.Dens, g.Pres)
	}

	eint := eos.DensPres2Eint(g.Dens, g.Pres, nil, eos.AuxFlt, eos.AuxInt)
	ekin := 0.5 * g.Dens * (g.VX*g.VX + g.VY*g.VY + g.VZ*g.VZ)
	state := [amr.NFluid]float64{}
	state[amr.Dens] = g.Dens
	state[amr.MomX], state[amr.MomY], state[amr.MomZ] =
		g.Dens*g.VX, g.Dens*g.VY, g.Dens*g.VZ
	state[amr.Engy] = eint + ekin
	state[amr.Ye] = g.Dens * g.Ye

	for _, p := range patches {
		for v := 0; v < amr.NFluid; v++ {
			field := p.Field(v)
			for c := range field {
				field[c] = state[v]
			}
		}
	}
	return nil
}

// rebind moves every particle to the rank that owns it, rebuilds the patch
// lists, and updates the global patch counts.
func (s *Sim) rebind() error {
	stats, err := exchange.Rehome(s.Comm, s.Repo, s.H)
	if err != nil {
		return err
	}
	if stats.RemovedGlobal > 0 {
		s.Msg.Rank0f("%d particles left the box and were removed.",
			stats.RemovedGlobal)
	}
	if err = amr.Bind(s.H, s.Repo, s.Comm.Rank()); err != nil {
		return err
	}
	s.H.GlobalCounts(s.Comm)
	return nil
}

// Regrid derefines and refines the hierarchy according to the refinement
// criteria, balances the load, and rebinds every particle.
func (s *Sim) Regrid() error {
	if err := s.rebind(); err != nil {
		return err
	}
	rank := s.Comm.Rank()

	changed := false
	for lv := s.H.NLevel() - 2; lv >= 0; lv-- {
		if s.H.Derefine(s.Comm, lv, s.flag) > 0 {
			changed = true
		}
	}
	if changed {
		if err := s.rebind(); err != nil {
			return err
		}
	}

	for lv := 0; lv < s.H.MaxLevel; lv++ {
		if s.H.Refine(lv, s.flag) == 0 {
			continue
		}
		if err := s.rebind(); err != nil {
			return err
		}
	}

	counts := s.H.GlobalCounts(s.Comm)
	weights := make([]int64, len(counts))
	for i := range counts {
		weights[i] = counts[i] + 1
	}
	s.H.LoadBalance(s.Comm, weights)
	s.H.AllocateFluid(rank)
	if err := s.rebind(); err != nil {
		return err
	}

	if build.Debug {
		return amr.Check(s.H, s.Repo, rank)
	}
	return nil
}

func (s *Sim) initRecords(nSource int) error {
	c := &s.Config.Record
	var err error
	s.Cadence, err = record.NewCadence(c.Interval, c.Steps)
	if err != nil {
		return err
	}

	if s.Comm.Rank() == mpi.Root {
		if err = os.MkdirAll(c.Dir, 0755); err != nil {
			return err
		}
		if c.Database != "" {
			s.db, err = record.OpenDatabase(filepath.Join(c.Dir, c.Database))
			if err != nil {
				return err
			}
		}
	}

	path := func(name string) string { return filepath.Join(c.Dir, name) }
	if c.Center {
		s.Recorders = append(s.Recorders, record.NewCenterRecorder(
			s.Comm, s.Repo, nSource, path("Record__Center"), s.db,
		))
	}
	if c.Sink {
		u := &s.Config.Units
		s.Recorders = append(s.Recorders, record.NewSinkRecorder(
			s.Comm, &s.Acc, u.Mass, u.Length/u.Time,
			path("Record__Sink"), s.db,
		))
	}
	if c.Bound {
		s.Recorders = append(s.Recorders, record.NewBoundRecorder(
			s.Comm, s.Repo, nSource, c.BoundRadius, c.Eps, c.G,
			path("Record__Bound"), s.db,
		))
	}
	return nil
}

// Advance runs a single step: source terms on every level, particle drift,
// rehoming (or a full regrid every RegridInterval steps), and diagnostics.
func (s *Sim) Advance() error {
	dt := s.Config.Run.Dt
	tOld, tNew := s.Time, s.Time+dt
	rank := s.Comm.Rank()

	for lv := 0; lv < s.H.NLevel(); lv++ {
		patches := []*amr.Patch{}
		for _, p := range s.H.Level(lv) {
			if p.Leaf() && p.Owner == rank {
				patches = append(patches, p)
			}
		}
		err := s.Solver.Advance(lv, patches, dt, tNew, tOld, &s.Acc)
		if err != nil {
			return err
		}
	}

	s.Drift(dt, tNew)
	s.Time, s.Step = tNew, s.Step+1

	var err error
	if s.Step%s.Config.Run.RegridInterval == 0 {
		err = s.Regrid()
	} else {
		err = s.rebind()
	}
	if err != nil {
		return err
	}

	return s.Record()
}

// Drift moves every live particle along its velocity for dt and sets its
// time to t. Particles which leave the box are handled by the next rebind.
func (s *Sim) Drift(dt, t float64) {
	for i := 0; i < s.Repo.NSlot(); i++ {
		if !s.Repo.Live(i) {
			continue
		}
		x, v := s.Repo.Pos(i), s.Repo.Vel(i)
		for k := 0; k < 3; k++ {
			x[k] += v[k] * dt
		}
		s.Repo.SetPos(i, x)
		s.Repo.Set(i, particles.Time, t)
	}
}

// Record runs every recorder if the current step is due.
func (s *Sim) Record() error {
	return record.RecordAll(s.Recorders, s.Cadence, s.Time, s.Step)
}

// Run records the initial state and then advances [Run] Steps steps.
func (s *Sim) Run() error {
	if err := s.Record(); err != nil {
		return err
	}
	for i := 0; i < s.Config.Run.Steps; i++ {
		if err := s.Advance(); err != nil {
			return fmt.Errorf("Step %d failed: %w", s.Step+1, err)
		}
		s.Msg.Rank0f("Finished step %d, t = %.5g.", s.Step, s.Time)
	}
	return nil
}

// Close releases the solver and the record database.
func (s *Sim) Close() error {
	s.Solver.End()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Execute creates a Sim from c, runs it, and closes it. It must be called
// collectively.
func Execute(comm mpi.Comm, c *config.Config) error {
	s, err := New(comm, c)
	if err != nil {
		return err
	}
	if err = s.Run(); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}
