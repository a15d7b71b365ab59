//go:build mpi
// +build mpi

package mpi

// The cgo header and the first few functions are based on
// github.com/marcusthierfelder/mpi, with changes to how compilation is done
// and how errors are reported. His license:
//
// Copyright (c) 2017 Marcus Thierfelder
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// NOTE: Use
// $ mpicc --showme:compile
// $ mpicc --showme:link
// To figure out CFLAGS and LDFLAGS, respectively

/*
#cgo LDFLAGS: -pthread -L/usr/lib/x86_64-linux-gnu/openmpi/lib -lmpi
#cgo CFLAGS: -std=gnu99 -Wall -I/usr/lib/x86_64-linux-gnu/openmpi/include/openmpi -I/usr/lib/x86_64-linux-gnu/openmpi/include -pthread
#include <mpi.h>
#include <stdlib.h>

MPI_Comm get_MPI_COMM_WORLD() {
    return (MPI_Comm)(MPI_COMM_WORLD);
}

MPI_Datatype get_MPI_Datatype(int i) {
    switch(i) {
    case 0: return (MPI_Datatype)MPI_INT;
    case 1: return (MPI_Datatype)MPI_LONG_LONG;
    case 2: return (MPI_Datatype)MPI_DOUBLE;
    }
    return NULL;
}

MPI_Op get_MPI_Op(int i) {
    switch(i) {
    case 0: return (MPI_Op)MPI_SUM;
    case 1: return (MPI_Op)MPI_MAX;
    case 2: return (MPI_Op)MPI_MIN;
    }
    return NULL;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

var (
	int32Type   C.MPI_Datatype = C.get_MPI_Datatype(0)
	int64Type   C.MPI_Datatype = C.get_MPI_Datatype(1)
	float64Type C.MPI_Datatype = C.get_MPI_Datatype(2)
)

// World is a Comm backed by MPI_COMM_WORLD.
type World struct {
	comm       C.MPI_Comm
	rank, size int
}

// Enabled is true if amrpar was compiled against an MPI library.
const Enabled = true

// Init initializes MPI and returns the world communicator. Finalize must be
// called before the process exits.
func Init() (Comm, error) {
	processError(C.MPI_Init(nil, nil))
	w := &World{comm: C.get_MPI_COMM_WORLD()}

	n := C.int(-1)
	processError(C.MPI_Comm_size(w.comm, &n))
	w.size = int(n)
	processError(C.MPI_Comm_rank(w.comm, &n))
	w.rank = int(n)

	return w, nil
}

func Finalize() {
	processError(C.MPI_Finalize())
}

func processError(err C.int) {
	if err == 0 {
		return
	}

	buf := make([]C.char, C.MPI_MAX_ERROR_STRING)
	n := C.int(0)
	C.MPI_Error_string(err, &buf[0], &n)
	panic(C.GoString(&buf[0]))
}

func mpiOp(op Op) C.MPI_Op {
	switch op {
	case OpSum, OpMax, OpMin:
		return C.get_MPI_Op(C.int(op))
	}
	panic(fmt.Sprintf("Internal error: unknown reduction %v.", op))
}

func (w *World) Rank() int { return w.rank }
func (w *World) Size() int { return w.size }

func (w *World) Barrier() {
	processError(C.MPI_Barrier(w.comm))
}

func (w *World) BcastInt64(buf []int64, root int) {
	if len(buf) == 0 {
		return
	}
	processError(C.MPI_Bcast(unsafe.Pointer(&buf[0]), C.int(len(buf)),
		int64Type, C.int(root), w.comm))
}

func (w *World) BcastFloat64(buf []float64, root int) {
	if len(buf) == 0 {
		return
	}
	processError(C.MPI_Bcast(unsafe.Pointer(&buf[0]), C.int(len(buf)),
		float64Type, C.int(root), w.comm))
}

func (w *World) AllgatherInt64(x int64) []int64 {
	recv := make([]int64, w.size)
	processError(C.MPI_Allgather(unsafe.Pointer(&x), 1, int64Type,
		unsafe.Pointer(&recv[0]), 1, int64Type, w.comm))
	return recv
}

func (w *World) AllreduceInt64(op Op, x []int64) []int64 {
	out := make([]int64, len(x))
	if len(x) == 0 {
		return out
	}
	processError(C.MPI_Allreduce(unsafe.Pointer(&x[0]),
		unsafe.Pointer(&out[0]), C.int(len(x)), int64Type, mpiOp(op), w.comm))
	return out
}

func (w *World) AllreduceFloat64(op Op, x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	processError(C.MPI_Allreduce(unsafe.Pointer(&x[0]),
		unsafe.Pointer(&out[0]), C.int(len(x)), float64Type, mpiOp(op),
		w.comm))
	return out
}

func (w *World) ReduceFloat64(op Op, x []float64, root int) []float64 {
	if len(x) == 0 {
		if w.rank == root {
			return []float64{}
		}
		return nil
	}
	out := make([]float64, len(x))
	processError(C.MPI_Reduce(unsafe.Pointer(&x[0]),
		unsafe.Pointer(&out[0]), C.int(len(x)), float64Type, mpiOp(op),
		C.int(root), w.comm))
	if w.rank != root {
		return nil
	}
	return out
}

func (w *World) AlltoallvFloat64(
	send []float64, sendCounts []int,
) (recv []float64, recvCounts []int) {
	n := w.size
	cSendCounts := make([]C.int, n)
	cRecvCounts := make([]C.int, n)
	for i := range sendCounts {
		cSendCounts[i] = C.int(sendCounts[i])
	}
	processError(C.MPI_Alltoall(unsafe.Pointer(&cSendCounts[0]), 1,
		int32Type, unsafe.Pointer(&cRecvCounts[0]), 1, int32Type, w.comm))

	recvCounts = make([]int, n)
	for i := range recvCounts {
		recvCounts[i] = int(cRecvCounts[i])
	}
	sendDisp, recvDisp := Displacements(sendCounts), Displacements(recvCounts)
	cSendDisp := make([]C.int, n)
	cRecvDisp := make([]C.int, n)
	total := 0
	for i := 0; i < n; i++ {
		cSendDisp[i], cRecvDisp[i] = C.int(sendDisp[i]), C.int(recvDisp[i])
		total += recvCounts[i]
	}

	recv = make([]float64, total)

	// Converting between Go and C pointers is way easier if we just do this.
	// It doesn't have any impact on correctness since index [0] isn't used.
	sendBuf, recvBuf := send, recv
	if len(sendBuf) == 0 {
		sendBuf = []float64{0}
	}
	if len(recvBuf) == 0 {
		recvBuf = []float64{0}
	}

	processError(C.MPI_Alltoallv(unsafe.Pointer(&sendBuf[0]),
		&cSendCounts[0], &cSendDisp[0], float64Type,
		unsafe.Pointer(&recvBuf[0]), &cRecvCounts[0], &cRecvDisp[0],
		float64Type, w.comm))
	return recv, recvCounts
}

func (w *World) GathervFloat64(
	send []float64, root int,
) (recv []float64, counts []int) {
	n := C.int(len(send))
	cCounts := make([]C.int, w.size)
	processError(C.MPI_Gather(unsafe.Pointer(&n), 1, int32Type,
		unsafe.Pointer(&cCounts[0]), 1, int32Type, C.int(root), w.comm))

	cDisp := make([]C.int, w.size)
	total := 0
	if w.rank == root {
		counts = make([]int, w.size)
		for i := range counts {
			counts[i] = int(cCounts[i])
			cDisp[i] = C.int(total)
			total += counts[i]
		}
		recv = make([]float64, total)
	}

	sendBuf, recvBuf := send, recv
	if len(sendBuf) == 0 {
		sendBuf = []float64{0}
	}
	if len(recvBuf) == 0 {
		recvBuf = []float64{0}
	}

	processError(C.MPI_Gatherv(unsafe.Pointer(&sendBuf[0]), n, float64Type,
		unsafe.Pointer(&recvBuf[0]), &cCounts[0], &cDisp[0], float64Type,
		C.int(root), w.comm))
	return recv, counts
}

// Abort calls MPI_Abort and does not return.
func (w *World) Abort(err error) {
	C.MPI_Abort(w.comm, 1)
}
