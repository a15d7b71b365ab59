package amr

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/phil-mansfield/amrpar/lib/mpi"
)

// Flag decides whether a patch should be refined (or, for Derefine, kept
// refined). Flags must give the same answer on every rank, so they may only
// depend on replicated metadata.
type Flag interface {
	Flag(p *Patch) bool
}

// RadiusFlag flags patches with at least one cell center closer than
// Threshold to Center.
type RadiusFlag struct {
	Center    mgl64.Vec3
	Threshold float64
}

func (f RadiusFlag) Flag(p *Patch) bool {
	r2 := f.Threshold * f.Threshold
	for k := 0; k < PatchSize; k++ {
		for j := 0; j < PatchSize; j++ {
			for i := 0; i < PatchSize; i++ {
				dx := p.CellCenter(i, j, k).Sub(f.Center)
				if dx.Dot(dx) < r2 {
					return true
				}
			}
		}
	}
	return false
}

// ParticleFlag flags patches which held at least Min particles (and at
// least one) at the last call to Hierarchy.GlobalCounts.
type ParticleFlag struct {
	Min int64
}

func (f ParticleFlag) Flag(p *Patch) bool {
	min := f.Min
	if min < 1 {
		min = 1
	}
	return p.globalNPar >= min
}

// AnyFlag flags a patch if any of its flags do.
type AnyFlag []Flag

func (f AnyFlag) Flag(p *Patch) bool {
	for _, flag := range f {
		if flag.Flag(p) {
			return true
		}
	}
	return false
}

// Refine splits every flagged leaf at level lv into eight children, which
// inherit the parent's owner and, if the parent had fluid, a copy of its
// cells. Particles must be rebound afterwards. It returns the number of
// patches refined.
func (h *Hierarchy) Refine(lv int, flag Flag) int {
	if lv >= h.MaxLevel {
		return 0
	}

	n := 0
	for _, p := range h.Level(lv) {
		if !p.Leaf() || !flag.Flag(p) {
			continue
		}
		h.split(p)
		n++
	}

	if n > 0 {
		h.rebuild()
	}
	return n
}

func (h *Hierarchy) split(p *Patch) {
	width, dx := h.PatchWidth(p.Level+1), h.CellWidth(p.Level+1)
	p.Children = make([]*Patch, 8)
	for c := range p.Children {
		child := &Patch{
			Level: p.Level + 1, Width: width, Owner: p.Owner, Parent: p,
		}
		for k := 0; k < 3; k++ {
			off := (c >> uint(k)) & 1
			child.Corner[k] = 2*p.Corner[k] + off*PatchSize
			child.Min[k] = float64(child.Corner[k]) * dx[k]
		}

		if p.Fluid != nil {
			child.Fluid = make([]float64, NFluid*CellsPerPatch)
			inject(p, child, c)
		}
		p.Children[c] = child
	}
	p.Fluid, p.particles = nil, nil
}

// inject copies the parent cells covering child c into the child's cells.
func inject(parent, child *Patch, c int) {
	half := PatchSize / 2
	ox, oy, oz := (c&1)*half, ((c>>1)&1)*half, ((c>>2)&1)*half
	for f := 0; f < NFluid; f++ {
		src, dst := parent.Field(f), child.Field(f)
		for k := 0; k < PatchSize; k++ {
			for j := 0; j < PatchSize; j++ {
				for i := 0; i < PatchSize; i++ {
					pc := CellIndex(ox+i/2, oy+j/2, oz+k/2)
					dst[CellIndex(i, j, k)] = src[pc]
				}
			}
		}
	}
}

// restrict averages child c's cells into the parent cells covering it.
func restrict(parent, child *Patch, c int) {
	half := PatchSize / 2
	ox, oy, oz := (c&1)*half, ((c>>1)&1)*half, ((c>>2)&1)*half
	for f := 0; f < NFluid; f++ {
		src, dst := child.Field(f), parent.Field(f)
		for k := 0; k < half; k++ {
			for j := 0; j < half; j++ {
				for i := 0; i < half; i++ {
					sum := 0.0
					for d := 0; d < 8; d++ {
						sum += src[CellIndex(
							2*i+(d&1), 2*j+((d>>1)&1), 2*k+((d>>2)&1),
						)]
					}
					dst[CellIndex(ox+i, oy+j, oz+k)] = sum / 8
				}
			}
		}
	}
}

// Derefine merges the children of every patch at level lv whose children are
// all leaves and which keep doesn't flag. The merged patch is owned by the
// owner of its first child, and the other children's fluid is moved to that
// rank first. It must be called collectively. Particles must be rehomed and
// rebound afterwards. It returns the number of patches derefined.
func (h *Hierarchy) Derefine(comm mpi.Comm, lv int, keep Flag) int {
	merge := []*Patch{}
	for _, p := range h.Level(lv) {
		if p.Leaf() {
			continue
		}
		allLeaves := true
		for _, c := range p.Children {
			allLeaves = allLeaves && c.Leaf()
		}
		if allLeaves && !keep.Flag(p) {
			merge = append(merge, p)
		}
	}
	if len(merge) == 0 {
		return 0
	}

	newOwners := make(map[*Patch]int)
	for _, p := range h.leaves {
		newOwners[p] = p.Owner
	}
	for _, p := range merge {
		for _, c := range p.Children {
			newOwners[c] = p.Children[0].Owner
		}
	}
	h.migrate(comm, newOwners)

	rank := comm.Rank()
	for _, p := range merge {
		p.Owner = p.Children[0].Owner
		if p.Owner == rank {
			p.Fluid = make([]float64, NFluid*CellsPerPatch)
			for c, child := range p.Children {
				if child.Fluid != nil {
					restrict(p, child, c)
				}
			}
		}
		p.Children = nil
	}
	h.rebuild()

	return len(merge)
}
