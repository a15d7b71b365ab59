/*package amr contains the block-structured patch hierarchy and the binding
between patches and the particles in a rank's repository.

The hierarchy's metadata (which patches exist and which rank owns each
leaf) is replicated on every rank and is only ever changed by
deterministic operations, so every rank agrees on it without
communication. Fluid data and particle lists exist only on the rank which
owns a leaf.
*/
package amr

import (
	"github.com/go-gl/mathgl/mgl64"
)

// PatchSize is the number of cells along each side of a patch.
const PatchSize = 8

// CellsPerPatch is the number of cells in a patch.
const CellsPerPatch = PatchSize * PatchSize * PatchSize

// Fluid fields. Patch.Fluid stores field f of cell c at
// f*CellsPerPatch + c.
const (
	Dens = iota
	MomX
	MomY
	MomZ
	Engy
	// Ye is the electron fraction, carried as a passive scalar.
	Ye
	NFluid
)

// Box is the simulation volume, [0, Size).
type Box struct {
	Size     [3]float64
	Periodic bool
}

// Patch is a PatchSize^3 block of cells at a single refinement level.
type Patch struct {
	Level int
	// Corner is the index of the patch's first cell at its level.
	Corner [3]int
	// Min is the patch's lower corner and Width its extent.
	Min, Width mgl64.Vec3
	// Owner is the rank which owns the patch. Only leaves have meaningful
	// owners.
	Owner int

	Parent   *Patch
	Children []*Patch

	// Fluid is nil unless this is a leaf owned by the current rank.
	Fluid []float64

	globalNPar int64
	particles  []int
	epoch      uint64
}

// Leaf returns true if the patch has no children.
func (p *Patch) Leaf() bool { return len(p.Children) == 0 }

// NPar returns the number of particles bound to the patch.
func (p *Patch) NPar() int { return len(p.particles) }

// HasParticles returns true if any particles are bound to the patch.
func (p *Patch) HasParticles() bool { return len(p.particles) > 0 }

// Particles returns the repository indices of the particles bound to the
// patch. They are only valid while the repository's epoch equals Epoch().
func (p *Patch) Particles() []int { return p.particles }

// Epoch returns the repository epoch the particle list was built in.
func (p *Patch) Epoch() uint64 { return p.epoch }

// GlobalNPar returns the number of particles in the patch summed over all
// ranks, as of the last call to Hierarchy.GlobalCounts.
func (p *Patch) GlobalNPar() int64 { return p.globalNPar }

// CellWidth returns the width of the patch's cells.
func (p *Patch) CellWidth() mgl64.Vec3 {
	return p.Width.Mul(1.0 / PatchSize)
}

// CellCenter returns the center of cell (i, j, k).
func (p *Patch) CellCenter(i, j, k int) mgl64.Vec3 {
	dx := p.CellWidth()
	return mgl64.Vec3{
		p.Min[0] + (float64(i)+0.5)*dx[0],
		p.Min[1] + (float64(j)+0.5)*dx[1],
		p.Min[2] + (float64(k)+0.5)*dx[2],
	}
}

// CellIndex returns the index of cell (i, j, k) within a fluid field.
func CellIndex(i, j, k int) int {
	return i + PatchSize*(j+PatchSize*k)
}

// CellCoords is the inverse of CellIndex.
func CellCoords(c int) (i, j, k int) {
	return c % PatchSize, (c / PatchSize) % PatchSize, c / (PatchSize * PatchSize)
}

// Field returns the cells of fluid field f. Writes to it are writes to the
// patch.
func (p *Patch) Field(f int) []float64 {
	return p.Fluid[f*CellsPerPatch : (f+1)*CellsPerPatch]
}

// Contains returns true if pos is inside the patch.
func (p *Patch) Contains(pos [3]float64) bool {
	for k := 0; k < 3; k++ {
		if pos[k] < p.Min[k] || pos[k] >= p.Min[k]+p.Width[k] {
			return false
		}
	}
	return true
}
