package mpi

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// world is the state shared by every rank of a Local communicator. Each
// collective is a rendezvous: ranks deposit a contribution into their slot
// and the last rank to arrive publishes the full set of contributions and
// starts a new generation.
type world struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	slots   []interface{}
	result  []interface{}
	abort   *AbortError
}

// Local is an in-process Comm. Ranks are goroutines which share a world.
type Local struct {
	w    *world
	rank int
}

// NewLocalWorld returns n Local communicators which form a single world. Each
// must be driven by its own goroutine.
func NewLocalWorld(n int) []*Local {
	if n <= 0 {
		panic(fmt.Sprintf("Internal error: world size %d.", n))
	}
	w := &world{
		size: n, slots: make([]interface{}, n),
	}
	w.cond = sync.NewCond(&w.mu)

	comms := make([]*Local, n)
	for i := range comms {
		comms[i] = &Local{w, i}
	}
	return comms
}

// exchange deposits x and blocks until every rank has deposited a value. It
// returns every rank's contribution in rank order. The returned values are
// shared between ranks and must not be modified.
func (w *world) exchange(rank int, x interface{}) []interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.abort != nil {
		panic(w.abort)
	}

	w.slots[rank] = x
	w.arrived++
	gen := w.gen

	if w.arrived == w.size {
		w.result = w.slots
		w.slots = make([]interface{}, w.size)
		w.arrived = 0
		w.gen++
		w.cond.Broadcast()
		return w.result
	}

	for gen == w.gen && w.abort == nil {
		w.cond.Wait()
	}
	if gen == w.gen {
		panic(w.abort)
	}
	// result can't be replaced until this rank enters the next collective.
	return w.result
}

func (w *world) setAbort(rank int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.abort == nil {
		w.abort = &AbortError{Rank: rank, Err: err}
	}
	w.cond.Broadcast()
}

func (c *Local) Rank() int { return c.rank }
func (c *Local) Size() int { return c.w.size }

func (c *Local) Barrier() { c.w.exchange(c.rank, nil) }

func (c *Local) BcastInt64(buf []int64, root int) {
	c.checkRoot(root)
	var x interface{}
	if c.rank == root {
		x = append([]int64{}, buf...)
	}
	res := c.w.exchange(c.rank, x)
	if c.rank != root {
		src := res[root].([]int64)
		if len(src) != len(buf) {
			panic(fmt.Sprintf("Internal error: rank %d broadcast %d values "+
				"into a buffer of length %d on rank %d.",
				root, len(src), len(buf), c.rank))
		}
		copy(buf, src)
	}
}

func (c *Local) BcastFloat64(buf []float64, root int) {
	c.checkRoot(root)
	var x interface{}
	if c.rank == root {
		x = append([]float64{}, buf...)
	}
	res := c.w.exchange(c.rank, x)
	if c.rank != root {
		src := res[root].([]float64)
		if len(src) != len(buf) {
			panic(fmt.Sprintf("Internal error: rank %d broadcast %d values "+
				"into a buffer of length %d on rank %d.",
				root, len(src), len(buf), c.rank))
		}
		copy(buf, src)
	}
}

func (c *Local) AllgatherInt64(x int64) []int64 {
	res := c.w.exchange(c.rank, x)
	out := make([]int64, len(res))
	for i := range res {
		out[i] = res[i].(int64)
	}
	return out
}

func (c *Local) AllreduceInt64(op Op, x []int64) []int64 {
	res := c.w.exchange(c.rank, append([]int64{}, x...))
	out := append([]int64{}, res[0].([]int64)...)
	for i := 1; i < len(res); i++ {
		reduceInt64(op, out, res[i].([]int64))
	}
	return out
}

func (c *Local) AllreduceFloat64(op Op, x []float64) []float64 {
	res := c.w.exchange(c.rank, append([]float64{}, x...))
	return c.reduceFloat64s(op, res)
}

func (c *Local) ReduceFloat64(op Op, x []float64, root int) []float64 {
	c.checkRoot(root)
	res := c.w.exchange(c.rank, append([]float64{}, x...))
	if c.rank != root {
		return nil
	}
	return c.reduceFloat64s(op, res)
}

// reduceFloat64s always reduces in rank order so that floating point sums
// are identical on every rank.
func (c *Local) reduceFloat64s(op Op, res []interface{}) []float64 {
	out := append([]float64{}, res[0].([]float64)...)
	for i := 1; i < len(res); i++ {
		reduceFloat64(op, out, res[i].([]float64))
	}
	return out
}

type alltoallvMsg struct {
	data   []float64
	counts []int
}

func (c *Local) AlltoallvFloat64(
	send []float64, sendCounts []int,
) (recv []float64, recvCounts []int) {
	if len(sendCounts) != c.w.size {
		panic(fmt.Sprintf("Internal error: %d send counts given to a world "+
			"of size %d.", len(sendCounts), c.w.size))
	}
	total := 0
	for _, n := range sendCounts {
		total += n
	}
	if total != len(send) {
		panic(fmt.Sprintf("Internal error: send counts sum to %d, but the "+
			"send buffer has length %d.", total, len(send)))
	}

	msg := alltoallvMsg{
		append([]float64{}, send...), append([]int{}, sendCounts...),
	}
	res := c.w.exchange(c.rank, msg)

	recvCounts = make([]int, len(res))
	for src := range res {
		m := res[src].(alltoallvMsg)
		disp := Displacements(m.counts)
		start, n := disp[c.rank], m.counts[c.rank]
		recv = append(recv, m.data[start:start+n]...)
		recvCounts[src] = n
	}
	if recv == nil {
		recv = []float64{}
	}
	return recv, recvCounts
}

func (c *Local) GathervFloat64(
	send []float64, root int,
) (recv []float64, counts []int) {
	c.checkRoot(root)
	res := c.w.exchange(c.rank, append([]float64{}, send...))
	if c.rank != root {
		return nil, nil
	}

	counts = make([]int, len(res))
	recv = []float64{}
	for i := range res {
		data := res[i].([]float64)
		counts[i] = len(data)
		recv = append(recv, data...)
	}
	return recv, counts
}

func (c *Local) Abort(err error) { c.w.setAbort(c.rank, err) }

func (c *Local) checkRoot(root int) {
	if root < 0 || root >= c.w.size {
		panic(fmt.Sprintf("Internal error: root %d is outside a world of "+
			"size %d.", root, c.w.size))
	}
}

// PanicError wraps a panic raised by one rank's function inside Run.
type PanicError struct {
	Rank  int
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("Rank %d panicked: %v\n%s", e.Rank, e.Value, e.Stack)
}

// Run executes f on n ranks of a fresh Local world and waits for all of them
// to return. If any rank returns an error or panics, the world is aborted so
// that ranks blocked in collectives are released. Run returns the error
// that caused the abort, or nil if every rank succeeded.
func Run(n int, f func(comm Comm) error) error {
	comms := NewLocalWorld(n)
	wg := &sync.WaitGroup{}
	for i := range comms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if _, ok := r.(*AbortError); ok {
					return
				}
				comms[i].Abort(&PanicError{i, r, debug.Stack()})
			}()

			if err := f(comms[i]); err != nil {
				comms[i].Abort(err)
			}
		}(i)
	}
	wg.Wait()

	comms[0].w.mu.Lock()
	ae := comms[0].w.abort
	comms[0].w.mu.Unlock()

	if ae != nil {
		return ae.Err
	}
	return nil
}
