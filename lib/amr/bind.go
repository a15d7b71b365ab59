package amr

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/particles"
)

// Bind rebuilds the particle lists of every leaf owned by rank from repo.
// Every live particle must be inside a leaf owned by rank: particles that
// have moved elsewhere must be rehomed before binding. Lists of patches that
// rank doesn't own are cleared.
func Bind(h *Hierarchy, repo *particles.Repository, rank int) error {
	for _, lv := range h.levels {
		for _, p := range lv {
			p.particles, p.epoch = p.particles[:0], 0
		}
	}

	for i := 0; i < repo.NSlot(); i++ {
		if !repo.Live(i) {
			continue
		}
		pos := repo.Pos(i)
		p, ok := h.Leaf(pos)
		if !ok {
			return fmt.Errorf("Particle %d at %g is outside the box and "+
				"must be rehomed before binding.", i, pos)
		} else if p.Owner != rank {
			return fmt.Errorf("Particle %d at %g is inside a patch owned "+
				"by rank %d, not rank %d, and must be rehomed before binding.",
				i, pos, p.Owner, rank)
		}
		p.particles = append(p.particles, i)
	}

	epoch := repo.Epoch()
	for _, p := range h.leaves {
		if p.Owner == rank {
			p.epoch = epoch
		}
	}

	return nil
}

// Check verifies that the bindings of rank's leaves are current: no list is
// from an old repository epoch, every live particle is bound to exactly one
// leaf, that leaf contains it, and no removed particle is bound.
func Check(h *Hierarchy, repo *particles.Repository, rank int) error {
	seen := make([]bool, repo.NSlot())
	nBound := 0

	for _, lv := range h.levels {
		for _, p := range lv {
			if !p.Leaf() || p.Owner != rank {
				if len(p.particles) > 0 {
					return fmt.Errorf("Patch at level %d, corner %d has "+
						"%d particles bound, but it isn't a leaf owned by "+
						"rank %d.", p.Level, p.Corner, len(p.particles), rank)
				}
				continue
			}

			if p.epoch != repo.Epoch() {
				return fmt.Errorf("Leaf at level %d, corner %d was bound in "+
					"repository epoch %d, but the repository is at epoch %d.",
					p.Level, p.Corner, p.epoch, repo.Epoch())
			}

			for _, i := range p.particles {
				if i < 0 || i >= repo.NSlot() || !repo.Live(i) {
					return fmt.Errorf("Leaf at level %d, corner %d holds "+
						"particle %d, which doesn't exist.", p.Level,
						p.Corner, i)
				} else if seen[i] {
					return fmt.Errorf("Particle %d is bound more than once.",
						i)
				} else if leaf, _ := h.Leaf(repo.Pos(i)); leaf != p {
					return fmt.Errorf("Particle %d at %g is bound to the "+
						"leaf at level %d, corner %d, which doesn't contain "+
						"it.", i, repo.Pos(i), p.Level, p.Corner)
				}
				seen[i] = true
				nBound++
			}
		}
	}

	if nBound != repo.Len() {
		return fmt.Errorf("%d of the %d live particles on rank %d are "+
			"bound to leaves.", nBound, repo.Len(), rank)
	}
	return nil
}

// NParInDescendant returns the number of particles bound to p and its
// descendants on this rank.
func NParInDescendant(p *Patch) int {
	if p.Leaf() {
		return p.NPar()
	}
	n := 0
	for _, c := range p.Children {
		n += NParInDescendant(c)
	}
	return n
}
