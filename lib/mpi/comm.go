/*package mpi contains the collective message-passing primitives that amrpar's
ranks use to agree on particle counts, offsets and reductions.

Two implementations of Comm exist. Local runs every rank as a goroutine
inside a single process and is what the tests and single-node runs use. When
the module is compiled with the "mpi" build tag, World wraps OpenMPI's
MPI_COMM_WORLD through cgo.

All collectives are blocking: every rank must call the same sequence of
collectives, and none returns until every rank has arrived. Like MPI with
MPI_ERRORS_ARE_FATAL, the collectives do not return errors. A rank which
cannot continue calls Abort and every rank blocked in (or later entering) a
collective is torn down.
*/
package mpi

import (
	"fmt"
)

// Op is a reduction operation.
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
)

// Root is the rank that performs serial work (reading file headers, writing
// logs). It is more semantic to use this than a literal 0.
const Root = 0

func (op Op) String() string {
	switch op {
	case OpSum:
		return "SUM"
	case OpMax:
		return "MAX"
	case OpMin:
		return "MIN"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Comm is a communicator. See the package documentation for the blocking and
// error semantics shared by every method.
type Comm interface {
	// Rank returns the index of the calling rank, in [0, Size()).
	Rank() int
	// Size returns the number of ranks.
	Size() int

	// Barrier blocks until every rank has called Barrier.
	Barrier()

	// BcastInt64 and BcastFloat64 overwrite buf on every rank with the
	// contents of buf on root. buf must have the same length on all ranks.
	BcastInt64(buf []int64, root int)
	BcastFloat64(buf []float64, root int)

	// AllgatherInt64 returns an array containing x from every rank, ordered
	// by rank.
	AllgatherInt64(x int64) []int64

	// AllreduceInt64 and AllreduceFloat64 reduce x element-wise across all
	// ranks and return the result on every rank. x is not modified.
	AllreduceInt64(op Op, x []int64) []int64
	AllreduceFloat64(op Op, x []float64) []float64

	// ReduceFloat64 reduces x element-wise across all ranks. The result is
	// returned on root; all other ranks receive nil.
	ReduceFloat64(op Op, x []float64, root int) []float64

	// AlltoallvFloat64 sends send[sum(sendCounts[:r]):][:sendCounts[r]] to
	// rank r. It returns the data received from all ranks, concatenated in
	// rank order, along with the number of values received from each rank.
	AlltoallvFloat64(send []float64, sendCounts []int) (
		recv []float64, recvCounts []int,
	)

	// GathervFloat64 concatenates send from every rank in rank order on
	// root. Non-root ranks receive nil arrays.
	GathervFloat64(send []float64, root int) (recv []float64, counts []int)

	// Abort tears down every rank. It does not return on MPI builds; on
	// Local builds it marks the world as aborted, which makes every pending
	// and future collective panic with an *AbortError.
	Abort(err error)
}

// AbortError is the value that collectives on an aborted Local world panic
// with. Run converts it back into an ordinary error.
type AbortError struct {
	// Rank is the rank which called Abort.
	Rank int
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("Rank %d aborted the run: %s", e.Rank, e.Err.Error())
}

func (e *AbortError) Unwrap() error { return e.Err }

// reduceInt64 reduces y into x element-wise.
func reduceInt64(op Op, x, y []int64) {
	if len(x) != len(y) {
		panic(fmt.Sprintf("Internal error: reduction over arrays of "+
			"length %d and %d.", len(x), len(y)))
	}
	for i := range x {
		switch op {
		case OpSum:
			x[i] += y[i]
		case OpMax:
			if y[i] > x[i] {
				x[i] = y[i]
			}
		case OpMin:
			if y[i] < x[i] {
				x[i] = y[i]
			}
		default:
			panic(fmt.Sprintf("Internal error: unknown reduction %v.", op))
		}
	}
}

// reduceFloat64 reduces y into x element-wise.
func reduceFloat64(op Op, x, y []float64) {
	if len(x) != len(y) {
		panic(fmt.Sprintf("Internal error: reduction over arrays of "+
			"length %d and %d.", len(x), len(y)))
	}
	for i := range x {
		switch op {
		case OpSum:
			x[i] += y[i]
		case OpMax:
			if y[i] > x[i] {
				x[i] = y[i]
			}
		case OpMin:
			if y[i] < x[i] {
				x[i] = y[i]
			}
		default:
			panic(fmt.Sprintf("Internal error: unknown reduction %v.", op))
		}
	}
}

// Displacements returns the starting offset of each block in an array made
// by concatenating blocks with the given counts.
func Displacements(counts []int) []int {
	disp := make([]int, len(counts))
	for i := 1; i < len(counts); i++ {
		disp[i] = disp[i-1] + counts[i-1]
	}
	return disp
}
