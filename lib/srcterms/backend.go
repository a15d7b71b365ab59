package srcterms

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// Backend executes a kernel over every cell of a patch.
type Backend interface {
	Name() string
	Available() bool
	// Launch calls f(i) for every i in [0, n) and returns once all calls
	// are finished. Calls may run concurrently.
	Launch(n int, f func(i int))
}

// Type assertions
var (
	_ Backend = CPU{}
	_ Backend = Device{}
)

// CPU splits cells into one contiguous chunk per thread. Threads <= 0 uses
// GOMAXPROCS threads.
type CPU struct {
	Threads int
}

func (CPU) Name() string    { return "cpu" }
func (CPU) Available() bool { return true }

func (b CPU) Launch(n int, f func(i int)) {
	if n <= 0 {
		return
	}
	workers := b.Threads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	wg := &sync.WaitGroup{}
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			for i := start; i < end; i++ {
				f(i)
			}
			wg.Done()
		}(start, end)
	}
	wg.Wait()
}

// DefaultLanes is the block width used by Device when Lanes isn't set.
const DefaultLanes = 128

// Device runs kernels the way an accelerator does: one logical lane per
// cell, launched in blocks of Lanes lanes. Blocks run one after another.
type Device struct {
	Lanes int
}

func (Device) Name() string    { return "device" }
func (Device) Available() bool { return true }

func (b Device) Launch(n int, f func(i int)) {
	lanes := b.Lanes
	if lanes <= 0 {
		lanes = DefaultLanes
	}

	wg := &sync.WaitGroup{}
	for start := 0; start < n; start += lanes {
		end := start + lanes
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				f(i)
				wg.Done()
			}(i)
		}
		wg.Wait()
	}
}

// NewBackend returns the backend with the given name ("cpu" or "device").
func NewBackend(name string, threads, lanes int) (Backend, error) {
	var b Backend
	switch strings.ToLower(name) {
	case "cpu", "":
		b = CPU{threads}
	case "device", "gpu":
		b = Device{lanes}
	default:
		return nil, fmt.Errorf("Unrecognized source-term backend '%s'. "+
			"The valid backends are 'cpu' and 'device'.", name)
	}
	if !b.Available() {
		return nil, fmt.Errorf("The '%s' backend isn't available on this "+
			"machine.", b.Name())
	}
	return b, nil
}

// SetThreads sets the number of OS threads Go code may run on at once. -1
// uses every core.
func SetThreads(n int) error {
	if n == -1 {
		n = runtime.NumCPU()
	}
	if n <= 0 {
		return fmt.Errorf("%d threads requested. Threads must be positive, "+
			"or -1 to use every core.", n)
	} else if n > runtime.NumCPU() {
		return fmt.Errorf("%d threads requested, but your system only has "+
			"%d cores per node. If you want amrpar to use the maximum "+
			"number of threads per node, set Threads = -1.", n,
			runtime.NumCPU())
	}

	runtime.GOMAXPROCS(n)
	return nil
}
