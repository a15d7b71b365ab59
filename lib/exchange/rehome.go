package exchange

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/particles"
)

// Owner decides which rank owns each point in the box.
type Owner interface {
	// Wrap maps pos into the box. ok is false if pos is outside a
	// non-periodic box.
	Wrap(pos [3]float64) (wrapped [3]float64, ok bool)
	// Owner returns the rank which owns a point inside the box.
	Owner(pos [3]float64) int
}

// RehomeStats summarizes a call to Rehome.
type RehomeStats struct {
	// Sent and Received count particles leaving and arriving at this rank.
	Sent, Received int
	// Removed counts particles on this rank that left a non-periodic box.
	Removed int
	// Before, After, and RemovedGlobal are global totals.
	Before, After, RemovedGlobal int64
}

// Rehome sends every live particle to the rank that owner assigns it to and
// removes particles that have left the box. The repository is compacted, so
// all existing indices, handles, and patch bindings are stale afterwards and
// the caller must rebind. It must be called collectively.
func Rehome(
	comm mpi.Comm, repo *particles.Repository, owner Owner,
) (*RehomeStats, error) {
	rank, nRank := comm.Rank(), comm.Size()
	stats := &RehomeStats{}

	stats.Before = comm.AllreduceInt64(
		mpi.OpSum, []int64{int64(repo.Len())})[0]

	dest := make([][]int, nRank)
	for p := 0; p < repo.NSlot(); p++ {
		if !repo.Live(p) {
			continue
		}
		x, ok := owner.Wrap(repo.Pos(p))
		if !ok {
			repo.Remove(p)
			stats.Removed++
			continue
		}
		repo.SetPos(p, x)

		r := owner.Owner(x)
		if r < 0 || r >= nRank {
			panic(fmt.Sprintf("Internal error: particle at %g assigned to "+
				"rank %d in a world of %d ranks.", x, r, nRank))
		}
		if r != rank {
			dest[r] = append(dest[r], p)
		}
	}

	var send []float64
	sendCounts := make([]int, nRank)
	for r := range dest {
		n0 := len(send)
		send = repo.Pack(dest[r], send)
		sendCounts[r] = len(send) - n0
		stats.Sent += len(dest[r])
	}

	recv, _ := comm.AlltoallvFloat64(send, sendCounts)

	for r := range dest {
		for _, p := range dest[r] {
			repo.Remove(p)
		}
	}
	repo.Compact()
	_, stats.Received = repo.Unpack(recv)

	totals := comm.AllreduceInt64(mpi.OpSum,
		[]int64{int64(repo.Len()), int64(stats.Removed)})
	stats.After, stats.RemovedGlobal = totals[0], totals[1]

	if stats.Before-stats.RemovedGlobal != stats.After {
		return stats, &InvariantError{
			"global particle count after rehoming",
			stats.After, stats.Before - stats.RemovedGlobal,
		}
	}

	return stats, nil
}
