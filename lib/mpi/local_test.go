package mpi

import (
	"errors"
	"math"
	"testing"

	"github.com/phil-mansfield/amrpar/lib/eq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcast(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		for root := 0; root < n; root++ {
			got := make([][]int64, n)
			err := Run(n, func(comm Comm) error {
				buf := []int64{-1, -1, -1}
				if comm.Rank() == root {
					buf = []int64{3, 1, 4}
				}
				comm.BcastInt64(buf, root)
				got[comm.Rank()] = buf
				return nil
			})
			require.NoError(t, err)
			for i := range got {
				if !eq.Int64s(got[i], []int64{3, 1, 4}) {
					t.Errorf("%d ranks, root %d: expected rank %d to get "+
						"[3 1 4], got %d.", n, root, i, got[i])
				}
			}
		}
	}
}

func TestAllgather(t *testing.T) {
	n := 4
	got := make([][]int64, n)
	err := Run(n, func(comm Comm) error {
		got[comm.Rank()] = comm.AllgatherInt64(int64(10 * comm.Rank()))
		return nil
	})
	require.NoError(t, err)
	for i := range got {
		assert.Equal(t, []int64{0, 10, 20, 30}, got[i])
	}
}

func TestAllreduce(t *testing.T) {
	tests := []struct {
		op     Op
		expect []int64
	}{
		{OpSum, []int64{6, -6}},
		{OpMax, []int64{3, -1}},
		{OpMin, []int64{1, -3}},
	}

	for _, test := range tests {
		got := make([][]int64, 3)
		gotF := make([][]float64, 3)
		err := Run(3, func(comm Comm) error {
			r := int64(comm.Rank() + 1)
			got[comm.Rank()] = comm.AllreduceInt64(test.op, []int64{r, -r})
			gotF[comm.Rank()] = comm.AllreduceFloat64(
				test.op, []float64{float64(r), float64(-r)})
			return nil
		})
		require.NoError(t, err)
		for i := range got {
			if !eq.Int64s(got[i], test.expect) {
				t.Errorf("%v on rank %d: expected %d, got %d.",
					test.op, i, test.expect, got[i])
			}
			expectF := []float64{
				float64(test.expect[0]), float64(test.expect[1]),
			}
			if !eq.Float64s(gotF[i], expectF) {
				t.Errorf("%v on rank %d: expected %g, got %g.",
					test.op, i, expectF, gotF[i])
			}
		}
	}
}

func TestReduceMaxSentinel(t *testing.T) {
	var got []float64
	err := Run(3, func(comm Comm) error {
		x := []float64{math.Inf(-1), math.Inf(-1)}
		if comm.Rank() == 2 {
			x = []float64{1.5, -2.5}
		}
		out := comm.ReduceFloat64(OpMax, x, Root)
		if comm.Rank() == Root {
			got = out
		} else if out != nil {
			return errors.New("non-root rank received a reduction")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.5}, got)
}

func TestAlltoallv(t *testing.T) {
	n := 3
	recv := make([][]float64, n)
	counts := make([][]int, n)
	err := Run(n, func(comm Comm) error {
		// Rank r sends r+1 copies of 10*r + dest to each dest.
		r := comm.Rank()
		send := []float64{}
		sendCounts := make([]int, n)
		for dest := 0; dest < n; dest++ {
			for k := 0; k <= r; k++ {
				send = append(send, float64(10*r+dest))
			}
			sendCounts[dest] = r + 1
		}
		recv[r], counts[r] = comm.AlltoallvFloat64(send, sendCounts)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, counts[1])
	assert.Equal(t, []float64{1, 11, 11, 21, 21, 21}, recv[1])
	assert.Equal(t, []float64{0, 10, 10, 20, 20, 20}, recv[0])
}

func TestGatherv(t *testing.T) {
	var recv []float64
	var counts []int
	err := Run(3, func(comm Comm) error {
		send := make([]float64, comm.Rank())
		for i := range send {
			send[i] = float64(comm.Rank())
		}
		r, c := comm.GathervFloat64(send, 1)
		if comm.Rank() == 1 {
			recv, counts = r, c
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, counts)
	assert.Equal(t, []float64{1, 2, 2}, recv)
}

func TestRunAbort(t *testing.T) {
	bad := errors.New("bad particle count")
	err := Run(4, func(comm Comm) error {
		if comm.Rank() == 2 {
			return bad
		}
		// The other ranks block here until rank 2's failure tears them down.
		comm.Barrier()
		comm.Barrier()
		return nil
	})
	if !errors.Is(err, bad) {
		t.Errorf("Expected Run to return %v, got %v.", bad, err)
	}
}

func TestRunPanic(t *testing.T) {
	err := Run(2, func(comm Comm) error {
		if comm.Rank() == 1 {
			panic("Internal error: oops.")
		}
		comm.Barrier()
		return nil
	})
	var pe *PanicError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, 1, pe.Rank)
}

func TestDisplacements(t *testing.T) {
	assert.Equal(t, []int{0, 3, 3, 4}, Displacements([]int{3, 0, 1, 5}))
	assert.Equal(t, []int{}, Displacements([]int{}))
}
