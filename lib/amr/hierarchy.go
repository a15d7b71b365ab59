package amr

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Hierarchy is a forest of patch octrees rooted on a uniform grid of base
// patches.
type Hierarchy struct {
	Box      Box
	NBase    [3]int
	MaxLevel int
	NRank    int

	roots []*Patch
	// levels[l] lists every patch at level l in traversal order.
	levels [][]*Patch
	leaves []*Patch
}

// NewHierarchy creates a hierarchy with nBase[0]*nBase[1]*nBase[2] level-0
// patches. The base patches are split between ranks along the Morton curve,
// but no fluid is allocated: call AllocateFluid to do that.
func NewHierarchy(
	box Box, nBase [3]int, maxLevel, nRank int,
) (*Hierarchy, error) {
	for k := 0; k < 3; k++ {
		if nBase[k] <= 0 {
			return nil, fmt.Errorf("The base grid must have a positive "+
				"number of patches along every axis, but it has %d.", nBase)
		} else if box.Size[k] <= 0 {
			return nil, fmt.Errorf("The box must have a positive size "+
				"along every axis, but it has size %g.", box.Size)
		}
	}
	if maxLevel < 0 || maxLevel > maxMortonLevel(nBase) {
		return nil, fmt.Errorf("MaxLevel = %d is outside the supported "+
			"range [0, %d].", maxLevel, maxMortonLevel(nBase))
	} else if nRank <= 0 {
		return nil, fmt.Errorf("The hierarchy needs at least one rank, "+
			"but was given %d.", nRank)
	}

	h := &Hierarchy{Box: box, NBase: nBase, MaxLevel: maxLevel, NRank: nRank}
	width := h.PatchWidth(0)
	for iz := 0; iz < nBase[2]; iz++ {
		for iy := 0; iy < nBase[1]; iy++ {
			for ix := 0; ix < nBase[0]; ix++ {
				idx := [3]int{ix, iy, iz}
				p := &Patch{Level: 0, Width: width}
				for k := 0; k < 3; k++ {
					p.Corner[k] = idx[k] * PatchSize
					p.Min[k] = float64(idx[k]) * width[k]
				}
				h.roots = append(h.roots, p)
			}
		}
	}
	h.rebuild()

	weights := make([]int64, len(h.leaves))
	for i := range weights {
		weights[i] = 1
	}
	h.assignOwners(weights)

	return h, nil
}

// PatchWidth returns the width of a patch at level lv.
func (h *Hierarchy) PatchWidth(lv int) mgl64.Vec3 {
	scale := math.Ldexp(1, -lv)
	return mgl64.Vec3{
		h.Box.Size[0] / float64(h.NBase[0]) * scale,
		h.Box.Size[1] / float64(h.NBase[1]) * scale,
		h.Box.Size[2] / float64(h.NBase[2]) * scale,
	}
}

// CellWidth returns the width of a cell at level lv.
func (h *Hierarchy) CellWidth(lv int) mgl64.Vec3 {
	return h.PatchWidth(lv).Mul(1.0 / PatchSize)
}

// rebuild recomputes the level and leaf lists from the trees.
func (h *Hierarchy) rebuild() {
	h.levels, h.leaves = nil, nil
	var visit func(p *Patch)
	visit = func(p *Patch) {
		for len(h.levels) <= p.Level {
			h.levels = append(h.levels, nil)
		}
		h.levels[p.Level] = append(h.levels[p.Level], p)
		if p.Leaf() {
			h.leaves = append(h.leaves, p)
		}
		for _, c := range p.Children {
			visit(c)
		}
	}
	for _, p := range h.roots {
		visit(p)
	}
}

// NLevel returns the number of levels which currently contain patches.
func (h *Hierarchy) NLevel() int { return len(h.levels) }

// Level returns every patch at level lv. The returned array must not be
// modified.
func (h *Hierarchy) Level(lv int) []*Patch {
	if lv >= len(h.levels) {
		return nil
	}
	return h.levels[lv]
}

// Leaves returns every leaf patch in a fixed traversal order which is the
// same on every rank. The returned array must not be modified.
func (h *Hierarchy) Leaves() []*Patch { return h.leaves }

// LocalLeaves returns the leaves owned by rank.
func (h *Hierarchy) LocalLeaves(rank int) []*Patch {
	out := []*Patch{}
	for _, p := range h.leaves {
		if p.Owner == rank {
			out = append(out, p)
		}
	}
	return out
}

// Wrap maps pos into the box. If the box isn't periodic, positions outside
// it return ok = false.
func (h *Hierarchy) Wrap(pos [3]float64) (wrapped [3]float64, ok bool) {
	for k := 0; k < 3; k++ {
		L := h.Box.Size[k]
		if pos[k] >= 0 && pos[k] < L {
			continue
		} else if !h.Box.Periodic || math.IsNaN(pos[k]) ||
			math.IsInf(pos[k], 0) {
			return pos, false
		}

		pos[k] = math.Mod(pos[k], L)
		if pos[k] < 0 {
			pos[k] += L
		}
		// Mod can round up to exactly L for tiny negative inputs.
		if pos[k] >= L {
			pos[k] = 0
		}
	}
	return pos, true
}

// Leaf returns the leaf containing pos. pos must already be inside the box.
func (h *Hierarchy) Leaf(pos [3]float64) (*Patch, bool) {
	var idx [3]int
	for k := 0; k < 3; k++ {
		if !(pos[k] >= 0 && pos[k] < h.Box.Size[k]) {
			return nil, false
		}
		idx[k] = int(pos[k] / h.Box.Size[k] * float64(h.NBase[k]))
		if idx[k] >= h.NBase[k] {
			idx[k] = h.NBase[k] - 1
		}
	}

	p := h.roots[idx[0]+h.NBase[0]*(idx[1]+h.NBase[1]*idx[2])]
	for !p.Leaf() {
		// Children are ordered so that bit k of the index is set for the
		// upper half along axis k.
		mid := p.Children[7].Min
		c := 0
		for k := 0; k < 3; k++ {
			if pos[k] >= mid[k] {
				c |= 1 << uint(k)
			}
		}
		p = p.Children[c]
	}
	return p, true
}

// Owner returns the rank owning the leaf that contains pos. pos must be
// inside the box.
func (h *Hierarchy) Owner(pos [3]float64) int {
	p, ok := h.Leaf(pos)
	if !ok {
		panic(fmt.Sprintf("Internal error: Owner() called on %g, which is "+
			"outside the box.", pos))
	}
	return p.Owner
}

// AllocateFluid gives every leaf owned by rank a fluid array (if it doesn't
// have one) and drops the fluid arrays of all other patches.
func (h *Hierarchy) AllocateFluid(rank int) {
	for _, lv := range h.levels {
		for _, p := range lv {
			if p.Leaf() && p.Owner == rank {
				if p.Fluid == nil {
					p.Fluid = make([]float64, NFluid*CellsPerPatch)
				}
			} else {
				p.Fluid = nil
			}
		}
	}
}
