package record

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/particles"
)

// localCenter writes the position of the particle labeling center c to
// out, or -Inf along every axis if this rank doesn't have it.
func localCenter(repo *particles.Repository, c int, out []float64) {
	out[0], out[1], out[2] = math.Inf(-1), math.Inf(-1), math.Inf(-1)
	typ := float64(particles.TypeCenterBase + c)
	types := repo.Attr(particles.Type)
	for i := range types {
		if types[i] == typ && repo.Live(i) {
			x := repo.Pos(i)
			out[0], out[1], out[2] = x[0], x[1], x[2]
			return
		}
	}
}

// Locate returns the position of the particle labeling center c on every
// rank. found is false if no rank has it. Collective.
func Locate(
	comm mpi.Comm, repo *particles.Repository, c int,
) (pos [3]float64, found bool) {
	buf := make([]float64, 3)
	localCenter(repo, c, buf)
	buf = comm.AllreduceFloat64(mpi.OpMax, buf)
	copy(pos[:], buf)
	return pos, !math.IsInf(buf[0], -1)
}

// CenterRecorder records the position of every labeled center.
type CenterRecorder struct {
	Comm    mpi.Comm
	Repo    *particles.Repository
	NCenter int
	Log     *Log
}

// NewCenterRecorder creates a CenterRecorder writing to path.
func NewCenterRecorder(
	comm mpi.Comm, repo *particles.Repository, nCenter int,
	path string, db *Database,
) *CenterRecorder {
	cols := []string{}
	for c := 0; c < nCenter; c++ {
		cols = append(cols, fmt.Sprintf("x%d", c),
			fmt.Sprintf("y%d", c), fmt.Sprintf("z%d", c))
	}
	return &CenterRecorder{comm, repo, nCenter, NewLog(path, cols, db)}
}

func (rec *CenterRecorder) Name() string { return "Record__Center" }

// Record reduces every center to the root rank. A center which no longer
// exists is written as -Inf.
func (rec *CenterRecorder) Record(time float64, step int) error {
	buf := make([]float64, 3*rec.NCenter)
	for c := 0; c < rec.NCenter; c++ {
		localCenter(rec.Repo, c, buf[3*c:3*c+3])
	}

	row := rec.Comm.ReduceFloat64(mpi.OpMax, buf, mpi.Root)
	if !isRoot(rec.Comm) {
		return nil
	}
	return rec.Log.Write(time, step, row)
}
