/*package particles contains the per-rank particle repository: a
structure-of-arrays store of every attribute of every particle that a rank
owns.*/
package particles

/* This file contains the Repository type and its attribute bookkeeping. */

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/build"
	"gonum.org/v1/gonum/floats"
)

// AttrID is the stable index of a particle attribute inside a Repository.
type AttrID int

// The built-in attributes. Every Repository has these, in this order.
const (
	Mass AttrID = iota
	PosX
	PosY
	PosZ
	VelX
	VelY
	VelZ
	Time
	Type
	NBuiltin
)

var builtinNames = []string{
	"mass", "x", "y", "z", "vx", "vy", "vz", "time", "type",
}

// Particle types. Types are stored as float64s alongside every other
// attribute.
const (
	TypeTracer         = 0.0
	TypeGenericMassive = 1.0
	TypeDarkMatter     = 2.0
	TypeStar           = 3.0
	TypeSink           = 4.0

	// TypeCenterBase + c marks the particle nearest the center of source c.
	TypeCenterBase = 100.0
)

// InactiveMass is written into the mass of removed particles.
const InactiveMass = -1.0

// Particle is a single particle outside of a Repository. Extra holds the
// registered non-builtin attributes in AttrID order.
type Particle struct {
	Mass     float64
	Pos, Vel [3]float64
	Time     float64
	Type     float64
	Extra    []float64
}

// Repository stores the particles owned by a single rank. Every attribute
// array is index-aligned: index p of every array describes the same
// particle. Removed particles are tombstoned and stay in place until
// Compact is called.
type Repository struct {
	fields []*Field
	ids    map[string]AttrID
	live   []bool
	nLive  int
	epoch  uint64
}

// Field is a single named attribute array.
type Field struct {
	Name string
	Data []float64
}

// NewRepository creates an empty repository with the built-in attributes
// and the given extra attributes.
func NewRepository(extra ...string) *Repository {
	r := &Repository{ids: map[string]AttrID{}}
	for _, name := range builtinNames {
		r.Register(name)
	}
	for _, name := range extra {
		r.Register(name)
	}
	return r
}

// Register adds a new attribute, initialized to zero for every existing
// particle, and returns its ID. Registering an existing name returns the
// existing ID.
func (r *Repository) Register(name string) AttrID {
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := AttrID(len(r.fields))
	data := make([]float64, len(r.live), cap(r.live))
	r.fields = append(r.fields, &Field{name, data})
	r.ids[name] = id
	return id
}

// AttrID returns the ID of the named attribute.
func (r *Repository) AttrID(name string) (AttrID, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// AttrName returns the name of an attribute.
func (r *Repository) AttrName(a AttrID) string { return r.fields[a].Name }

// NAttr returns the number of attributes.
func (r *Repository) NAttr() int { return len(r.fields) }

// Len returns the number of live particles.
func (r *Repository) Len() int { return r.nLive }

// NSlot returns the number of slots, live or tombstoned. Valid particle
// indices are [0, NSlot()).
func (r *Repository) NSlot() int { return len(r.live) }

// Cap returns the number of slots that can be used before the attribute
// arrays need to grow.
func (r *Repository) Cap() int { return cap(r.live) }

// Epoch returns a counter which increases every time existing particles move
// to new indices.
func (r *Repository) Epoch() uint64 { return r.epoch }

// Allocate ensures that at least capacity slots can be held without
// reallocating.
func (r *Repository) Allocate(capacity int) {
	if capacity <= cap(r.live) {
		return
	}
	n := len(r.live)
	live := make([]bool, n, capacity)
	copy(live, r.live)
	r.live = live
	for _, f := range r.fields {
		data := make([]float64, n, capacity)
		copy(data, f.Data)
		f.Data = data
	}
}

func (r *Repository) checkIndex(p int) {
	if p < 0 || p >= len(r.live) {
		panic(fmt.Sprintf("Internal error: particle index %d is outside "+
			"the repository's %d slots.", p, len(r.live)))
	}
}

func (r *Repository) checkAttr(a AttrID) {
	if a < 0 || int(a) >= len(r.fields) {
		panic(fmt.Sprintf("Internal error: attribute %d does not exist "+
			"(the repository has %d attributes).", a, len(r.fields)))
	}
}

// Get returns attribute a of particle p.
func (r *Repository) Get(p int, a AttrID) float64 {
	if build.Debug {
		r.checkIndex(p)
		r.checkAttr(a)
	}
	return r.fields[a].Data[p]
}

// Set sets attribute a of particle p.
func (r *Repository) Set(p int, a AttrID, x float64) {
	if build.Debug {
		r.checkIndex(p)
		r.checkAttr(a)
	}
	r.fields[a].Data[p] = x
}

// Attr returns the full slot array of attribute a. Writes to it are writes to
// the repository.
func (r *Repository) Attr(a AttrID) []float64 {
	if build.Debug {
		r.checkAttr(a)
	}
	return r.fields[a].Data
}

// Pos and Vel return the position and velocity of particle p.
func (r *Repository) Pos(p int) [3]float64 {
	return [3]float64{
		r.fields[PosX].Data[p], r.fields[PosY].Data[p], r.fields[PosZ].Data[p],
	}
}

func (r *Repository) Vel(p int) [3]float64 {
	return [3]float64{
		r.fields[VelX].Data[p], r.fields[VelY].Data[p], r.fields[VelZ].Data[p],
	}
}

// SetPos and SetVel set the position and velocity of particle p.
func (r *Repository) SetPos(p int, x [3]float64) {
	for k := 0; k < 3; k++ {
		r.fields[PosX+AttrID(k)].Data[p] = x[k]
	}
}

func (r *Repository) SetVel(p int, v [3]float64) {
	for k := 0; k < 3; k++ {
		r.fields[VelX+AttrID(k)].Data[p] = v[k]
	}
}

// Live returns true if particle p has not been removed.
func (r *Repository) Live(p int) bool {
	if build.Debug {
		r.checkIndex(p)
	}
	return r.live[p]
}

// Particle returns a copy of particle p.
func (r *Repository) Particle(p int) Particle {
	if build.Debug {
		r.checkIndex(p)
	}
	par := Particle{
		Mass: r.fields[Mass].Data[p],
		Pos:  r.Pos(p), Vel: r.Vel(p),
		Time: r.fields[Time].Data[p], Type: r.fields[Type].Data[p],
	}
	if len(r.fields) > int(NBuiltin) {
		par.Extra = make([]float64, len(r.fields)-int(NBuiltin))
		for i := range par.Extra {
			par.Extra[i] = r.fields[int(NBuiltin)+i].Data[p]
		}
	}
	return par
}

// Append adds a particle to the end of the repository and returns its index.
func (r *Repository) Append(par Particle) int {
	if len(par.Extra) > len(r.fields)-int(NBuiltin) {
		panic(fmt.Sprintf("Internal error: particle has %d extra "+
			"attributes, but only %d are registered.", len(par.Extra),
			len(r.fields)-int(NBuiltin)))
	}

	p := r.AppendN(1)
	r.fields[Mass].Data[p] = par.Mass
	r.SetPos(p, par.Pos)
	r.SetVel(p, par.Vel)
	r.fields[Time].Data[p] = par.Time
	r.fields[Type].Data[p] = par.Type
	for i, x := range par.Extra {
		r.fields[int(NBuiltin)+i].Data[p] = x
	}
	return p
}

// AppendN reserves n contiguous live slots with every attribute set to zero
// and returns the index of the first one.
func (r *Repository) AppendN(n int) int {
	first := len(r.live)
	if first+n > cap(r.live) {
		r.Allocate(growCap(cap(r.live), first+n))
	}
	r.live = r.live[:first+n]
	for i := first; i < first+n; i++ {
		r.live[i] = true
	}
	for _, f := range r.fields {
		f.Data = f.Data[:first+n]
		for i := first; i < first+n; i++ {
			f.Data[i] = 0
		}
	}
	r.nLive += n
	return first
}

func growCap(c, need int) int {
	if c < 16 {
		c = 16
	}
	for c < need {
		c *= 2
	}
	return c
}

// Remove tombstones particle p. Its slot keeps its index until the next
// Compact.
func (r *Repository) Remove(p int) {
	r.checkIndex(p)
	if !r.live[p] {
		panic(fmt.Sprintf("Internal error: particle %d removed twice.", p))
	}
	r.live[p] = false
	r.fields[Mass].Data[p] = InactiveMass
	r.nLive--
}

// Sum returns the sum of attribute a over all live particles.
func (r *Repository) Sum(a AttrID) float64 {
	if build.Debug {
		r.checkAttr(a)
	}
	data := r.fields[a].Data
	if r.nLive == len(r.live) {
		return floats.Sum(data)
	}
	sum := 0.0
	for p, x := range data {
		if r.live[p] {
			sum += x
		}
	}
	return sum
}
