package amr

import (
	"fmt"
	"sort"

	"github.com/phil-mansfield/amrpar/lib/mpi"
)

const mortonBits = 21

// maxMortonLevel returns the deepest level whose patches can still be given
// unique 63-bit Morton keys.
func maxMortonLevel(nBase [3]int) int {
	n := nBase[0]
	if nBase[1] > n {
		n = nBase[1]
	}
	if nBase[2] > n {
		n = nBase[2]
	}
	bits := 0
	for (1 << uint(bits)) < n {
		bits++
	}
	return mortonBits - bits
}

// spread inserts two zero bits between each of the low 21 bits of x.
func spread(x uint64) uint64 {
	x &= 0x1fffff
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	x = (x | x<<2) & 0x1249249249249249
	return x
}

// mortonKey returns the Morton index of a patch's lower corner at the
// resolution of the deepest level.
func (h *Hierarchy) mortonKey(p *Patch) uint64 {
	shift := uint(h.MaxLevel - p.Level)
	key := uint64(0)
	for k := 0; k < 3; k++ {
		idx := uint64(p.Corner[k]/PatchSize) << shift
		key |= spread(idx) << uint(k)
	}
	return key
}

// GlobalCounts sums the number of particles bound to each leaf over all
// ranks and returns them in Leaves() order. The totals are also stored in
// every patch, where parents hold the sum over their descendants. It must
// be called collectively.
func (h *Hierarchy) GlobalCounts(comm mpi.Comm) []int64 {
	local := make([]int64, len(h.leaves))
	for i, p := range h.leaves {
		if p.Owner == comm.Rank() {
			local[i] = int64(p.NPar())
		}
	}
	global := comm.AllreduceInt64(mpi.OpSum, local)

	for lv := len(h.levels) - 1; lv >= 0; lv-- {
		for _, p := range h.levels[lv] {
			p.globalNPar = 0
		}
	}
	for i, p := range h.leaves {
		p.globalNPar = global[i]
	}
	for lv := len(h.levels) - 1; lv > 0; lv-- {
		for _, p := range h.levels[lv] {
			p.Parent.globalNPar += p.globalNPar
		}
	}

	return global
}

// balance returns a new owner for each leaf. Leaves are sorted along the
// Morton curve and cut into NRank contiguous runs of roughly equal weight.
func (h *Hierarchy) balance(weights []int64) []int {
	if len(weights) != len(h.leaves) {
		panic(fmt.Sprintf("Internal error: %d weights given for %d leaves.",
			len(weights), len(h.leaves)))
	}

	order := make([]int, len(h.leaves))
	keys := make([]uint64, len(h.leaves))
	total := int64(0)
	for i, p := range h.leaves {
		order[i], keys[i] = i, h.mortonKey(p)
		if weights[i] < 0 {
			panic(fmt.Sprintf("Internal error: leaf %d has weight %d.",
				i, weights[i]))
		}
		total += weights[i]
	}
	sort.Slice(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})

	owners := make([]int, len(h.leaves))
	if total == 0 {
		total = 1
	}
	cum, nRank := int64(0), int64(h.NRank)
	for _, i := range order {
		// Each leaf goes to the rank containing its weighted midpoint.
		r := (2*cum + weights[i]) * nRank / (2 * total)
		if r >= nRank {
			r = nRank - 1
		}
		owners[i] = int(r)
		cum += weights[i]
	}
	return owners
}

func (h *Hierarchy) assignOwners(weights []int64) {
	owners := h.balance(weights)
	for i, p := range h.leaves {
		p.Owner = owners[i]
	}
}

// LoadBalance reassigns leaves to ranks so that every rank gets a
// contiguous run of the Morton curve with roughly equal total weight.
// weights must be given in Leaves() order and be identical on every rank.
// Fluid is moved to the new owners. Particles must be rehomed and rebound
// afterwards. It must be called collectively and returns the number of
// leaves that changed owners.
func (h *Hierarchy) LoadBalance(comm mpi.Comm, weights []int64) int {
	owners := h.balance(weights)
	newOwners := make(map[*Patch]int, len(h.leaves))
	moved := 0
	for i, p := range h.leaves {
		newOwners[p] = owners[i]
		if owners[i] != p.Owner {
			moved++
		}
	}
	h.migrate(comm, newOwners)
	return moved
}

// migrate moves leaves to new owners, sending fluid with them. Every rank
// can work out which leaves it will receive and in what order from the
// replicated metadata, so only the fluid itself is sent.
func (h *Hierarchy) migrate(comm mpi.Comm, newOwners map[*Patch]int) {
	rank, nRank := comm.Rank(), comm.Size()
	size := NFluid * CellsPerPatch

	send := make([][]float64, nRank)
	for _, p := range h.leaves {
		to := newOwners[p]
		if p.Owner != rank || to == rank {
			continue
		}
		if p.Fluid == nil {
			send[to] = append(send[to], make([]float64, size)...)
		} else {
			send[to] = append(send[to], p.Fluid...)
		}
	}

	var flat []float64
	counts := make([]int, nRank)
	for r := range send {
		flat = append(flat, send[r]...)
		counts[r] = len(send[r])
	}
	recv, recvCounts := comm.AlltoallvFloat64(flat, counts)
	disp := mpi.Displacements(recvCounts)

	for _, p := range h.leaves {
		from, to := p.Owner, newOwners[p]
		if to == rank && from != rank {
			p.Fluid = append([]float64{}, recv[disp[from]:disp[from]+size]...)
			disp[from] += size
		} else if from == rank && to != rank {
			p.Fluid = nil
		}
		if from != to {
			p.particles, p.epoch = nil, 0
		}
		p.Owner = to
	}
}
