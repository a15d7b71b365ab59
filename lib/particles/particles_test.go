package particles

import (
	"testing"

	"github.com/phil-mansfield/amrpar/lib/eq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepository(n int) *Repository {
	r := NewRepository("metallicity")
	for i := 0; i < n; i++ {
		x := float64(i)
		r.Append(Particle{
			Mass: x + 1, Pos: [3]float64{x, 2 * x, 3 * x},
			Vel: [3]float64{-x, 0, x}, Time: 0.5, Type: TypeDarkMatter,
			Extra: []float64{10 * x},
		})
	}
	return r
}

func TestRegister(t *testing.T) {
	r := NewRepository("a", "b")
	if r.NAttr() != int(NBuiltin)+2 {
		t.Errorf("Expected %d attributes, got %d.", NBuiltin+2, r.NAttr())
	}

	a, ok := r.AttrID("a")
	require.True(t, ok)
	assert.Equal(t, NBuiltin, a)
	assert.Equal(t, a, r.Register("a"))

	id, ok := r.AttrID("mass")
	require.True(t, ok)
	assert.Equal(t, Mass, id)

	_, ok = r.AttrID("phi")
	assert.False(t, ok)

	r.AppendN(3)
	c := r.Register("c")
	for p := 0; p < 3; p++ {
		if r.Get(p, c) != 0 {
			t.Errorf("Expected new attribute to start at zero, got %g.",
				r.Get(p, c))
		}
	}
}

func TestAppendGetSet(t *testing.T) {
	r := testRepository(40)
	if r.Len() != 40 || r.NSlot() != 40 {
		t.Errorf("Expected Len() = NSlot() = 40, got %d and %d.",
			r.Len(), r.NSlot())
	}

	par := r.Particle(7)
	assert.Equal(t, 8.0, par.Mass)
	assert.Equal(t, [3]float64{7, 14, 21}, par.Pos)
	assert.Equal(t, [3]float64{-7, 0, 7}, par.Vel)
	assert.Equal(t, []float64{70}, par.Extra)

	r.Set(7, PosY, -1)
	assert.Equal(t, -1.0, r.Get(7, PosY))
	assert.Equal(t, -1.0, r.Attr(PosY)[7])
	assert.Equal(t, 42.0, r.Get(14, PosZ))
}

func TestAllocate(t *testing.T) {
	r := NewRepository()
	r.Allocate(100)
	if r.Cap() < 100 {
		t.Errorf("Expected Cap() >= 100, got %d.", r.Cap())
	}
	first := r.AppendN(10)
	assert.Equal(t, 0, first)
	first = r.AppendN(5)
	assert.Equal(t, 10, first)
	assert.Equal(t, 15, r.Len())
}

func TestRemoveCompact(t *testing.T) {
	r := testRepository(6)
	h := r.Handle(4)
	require.True(t, r.Valid(h))

	r.Remove(1)
	r.Remove(3)

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 6, r.NSlot())
	assert.False(t, r.Live(1))
	assert.Equal(t, InactiveMass, r.Get(1, Mass))
	assert.True(t, r.Valid(h), "removal must not invalidate other handles")

	epoch := r.Epoch()
	remap := r.Compact()

	if !eq.Ints(remap, []int{0, -1, 1, -1, 2, 3}) {
		t.Errorf("Expected remap [0 -1 1 -1 2 3], got %d.", remap)
	}
	assert.Equal(t, epoch+1, r.Epoch())
	assert.False(t, r.Valid(h))
	assert.Equal(t, 4, r.NSlot())

	// Every attribute array must have moved together.
	metal, _ := r.AttrID("metallicity")
	for p, old := range []int{0, 2, 4, 5} {
		x := float64(old)
		if r.Get(p, Mass) != x+1 || r.Get(p, PosZ) != 3*x ||
			r.Get(p, VelX) != -x || r.Get(p, metal) != 10*x {
			t.Errorf("Particle %d does not match old particle %d: %+v",
				p, old, r.Particle(p))
		}
	}
}

func TestRemoveTwicePanics(t *testing.T) {
	r := testRepository(2)
	r.Remove(0)
	assert.Panics(t, func() { r.Remove(0) })
}

func TestPackUnpack(t *testing.T) {
	src := testRepository(5)
	buf := src.Pack([]int{4, 1}, nil)
	require.Equal(t, 2*src.NAttr(), len(buf))

	dest := testRepository(3)
	first, n := dest.Unpack(buf)
	assert.Equal(t, 3, first)
	assert.Equal(t, 2, n)
	assert.Equal(t, src.Particle(4), dest.Particle(3))
	assert.Equal(t, src.Particle(1), dest.Particle(4))

	assert.Panics(t, func() { dest.Unpack(buf[:3]) })
}

func TestTransfer(t *testing.T) {
	src := testRepository(4)
	dest := testRepository(4)
	err := src.Transfer(dest, []int{3, 2}, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, src.Particle(3), dest.Particle(0))
	assert.Equal(t, src.Particle(2), dest.Particle(1))

	err = src.Transfer(NewRepository(), []int{0}, []int{0})
	assert.Error(t, err)
	err = src.Transfer(dest, []int{0}, []int{})
	assert.Error(t, err)
}

func TestSum(t *testing.T) {
	r := testRepository(4)
	assert.Equal(t, 10.0, r.Sum(Mass))
	r.Remove(2)
	assert.Equal(t, 7.0, r.Sum(Mass))
}
