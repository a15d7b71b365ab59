package particles

/* This file contains functions which move particles around: compaction,
handles into the repository, and the flat payloads used to send particles
between ranks. */

import (
	"fmt"
)

// Handle is an index into a Repository which remembers the epoch it was
// created in. It is invalidated by Compact.
type Handle struct {
	Index int
	Epoch uint64
}

// Handle returns a handle to particle p.
func (r *Repository) Handle(p int) Handle {
	return Handle{p, r.epoch}
}

// Valid returns true if h still refers to the particle it was created for.
func (r *Repository) Valid(h Handle) bool {
	return h.Epoch == r.epoch && h.Index >= 0 &&
		h.Index < len(r.live) && r.live[h.Index]
}

// Transfer copies particles at the indices 'from' in r to the indices 'to'
// in dest. dest must have every attribute that r has. The indices are passed
// as arrays to amortize the cost of error handling. If dest == r, the
// copies are done in order, so moving particles towards lower indices is
// safe.
func (r *Repository) Transfer(dest *Repository, from, to []int) error {
	if len(from) != len(to) {
		return fmt.Errorf("'from' index array has length %d, but 'to' "+
			"has length %d.", len(from), len(to))
	}

	destIDs := make([]AttrID, len(r.fields))
	for i, f := range r.fields {
		id, ok := dest.ids[f.Name]
		if !ok {
			return fmt.Errorf("Destination Repository does not contain "+
				"the attribute '%s'.", f.Name)
		}
		destIDs[i] = id
	}

	for i, f := range r.fields {
		destData := dest.fields[destIDs[i]].Data
		for j := range from {
			destData[to[j]] = f.Data[from[j]]
		}
	}

	for i := range from {
		if r.live[from[i]] != dest.live[to[i]] {
			dest.nLive += liveDelta(r.live[from[i]])
			dest.live[to[i]] = r.live[from[i]]
		}
	}

	return nil
}

func liveDelta(live bool) int {
	if live {
		return 1
	}
	return -1
}

// Compact moves all live particles to the front of the repository, keeping
// their relative order, and drops the tombstoned slots. It returns an array
// mapping old indices to new indices, with -1 for removed particles, and
// increments the repository's epoch.
func (r *Repository) Compact() []int {
	remap := make([]int, len(r.live))
	from, to := []int{}, []int{}
	j := 0
	for i := range r.live {
		if !r.live[i] {
			remap[i] = -1
			continue
		}
		remap[i] = j
		if i != j {
			from, to = append(from, i), append(to, j)
		}
		j++
	}

	if err := r.Transfer(r, from, to); err != nil {
		panic("Internal error: " + err.Error())
	}

	r.live = r.live[:j]
	for i := range r.live {
		r.live[i] = true
	}
	for _, f := range r.fields {
		f.Data = f.Data[:j]
	}
	r.nLive = j
	r.epoch++

	return remap
}

// Pack appends every attribute of the particles at the indices idx to buf,
// one particle after another, and returns the extended buffer.
func (r *Repository) Pack(idx []int, buf []float64) []float64 {
	for _, p := range idx {
		if !r.live[p] {
			panic(fmt.Sprintf("Internal error: packing removed "+
				"particle %d.", p))
		}
		for _, f := range r.fields {
			buf = append(buf, f.Data[p])
		}
	}
	return buf
}

// Unpack appends the particles in a buffer created by Pack. It returns the
// index of the first new particle and the number of particles added.
func (r *Repository) Unpack(buf []float64) (first, n int) {
	nAttr := len(r.fields)
	if len(buf)%nAttr != 0 {
		panic(fmt.Sprintf("Internal error: particle payload of length %d "+
			"is not a multiple of the %d attributes per particle.",
			len(buf), nAttr))
	}

	n = len(buf) / nAttr
	first = r.AppendN(n)
	for i := 0; i < n; i++ {
		for a, f := range r.fields {
			f.Data[first+i] = buf[i*nAttr+a]
		}
	}
	return first, n
}
