package amr

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phil-mansfield/amrpar/lib/exchange"
	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/particles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHierarchy(t *testing.T, periodic bool, nRank int) *Hierarchy {
	h, err := NewHierarchy(
		Box{[3]float64{1, 1, 1}, periodic}, [3]int{2, 2, 2}, 3, nRank,
	)
	require.NoError(t, err)
	return h
}

func TestNewHierarchy(t *testing.T) {
	h := testHierarchy(t, true, 3)
	assert.Equal(t, 8, len(h.Leaves()))
	assert.Equal(t, 1, h.NLevel())

	perRank := make([]int, 3)
	for _, p := range h.Leaves() {
		perRank[p.Owner]++
	}
	for r, n := range perRank {
		if n < 2 || n > 3 {
			t.Errorf("Expected rank %d to own 2 or 3 base patches, got %d.",
				r, n)
		}
	}

	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, h.PatchWidth(0))
	assert.Equal(t, mgl64.Vec3{1.0 / 32, 1.0 / 32, 1.0 / 32}, h.CellWidth(1))

	_, err := NewHierarchy(Box{[3]float64{1, 0, 1}, true}, [3]int{1, 1, 1},
		0, 1)
	assert.Error(t, err)
	_, err = NewHierarchy(Box{[3]float64{1, 1, 1}, true}, [3]int{1, 1, 1},
		30, 1)
	assert.Error(t, err)
}

func TestWrap(t *testing.T) {
	hp, hn := testHierarchy(t, true, 1), testHierarchy(t, false, 1)
	tests := []struct {
		x, wrapped [3]float64
		inside     bool
	}{
		{[3]float64{0.5, 0.25, 0}, [3]float64{0.5, 0.25, 0}, true},
		{[3]float64{1.25, -0.25, 0}, [3]float64{0.25, 0.75, 0}, false},
		{[3]float64{1, 0, 0}, [3]float64{0, 0, 0}, false},
	}
	for i, test := range tests {
		x, ok := hp.Wrap(test.x)
		if !ok || x != test.wrapped {
			t.Errorf("%d) Expected periodic Wrap(%g) = %g, got %g, %v.",
				i, test.x, test.wrapped, x, ok)
		}
		_, ok = hn.Wrap(test.x)
		if ok != test.inside {
			t.Errorf("%d) Expected non-periodic Wrap(%g) ok = %v, got %v.",
				i, test.x, test.inside, ok)
		}
	}
}

func TestRefineLeaf(t *testing.T) {
	h := testHierarchy(t, false, 1)
	center := mgl64.Vec3{0.1, 0.1, 0.1}
	n := h.Refine(0, RadiusFlag{center, 0.05})
	assert.Equal(t, 1, n)
	assert.Equal(t, 15, len(h.Leaves()))

	n = h.Refine(1, RadiusFlag{center, 0.05})
	assert.Equal(t, 1, n)
	assert.Equal(t, 22, len(h.Leaves()))
	assert.Equal(t, 3, h.NLevel())

	p, ok := h.Leaf([3]float64{0.1, 0.1, 0.1})
	require.True(t, ok)
	assert.Equal(t, 2, p.Level)
	assert.True(t, p.Contains([3]float64{0.1, 0.1, 0.1}))
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, p.Min)

	p, ok = h.Leaf([3]float64{0.9, 0.1, 0.3})
	require.True(t, ok)
	assert.Equal(t, 0, p.Level)

	// Every leaf contains the points it's found for.
	for _, leaf := range h.Leaves() {
		c := leaf.CellCenter(3, 4, 5)
		got, ok := h.Leaf([3]float64{c[0], c[1], c[2]})
		if !ok || got != leaf {
			t.Errorf("Leaf(%g) did not find the leaf at level %d, corner "+
				"%d.", c, leaf.Level, leaf.Corner)
		}
	}

	_, ok = h.Leaf([3]float64{1, 0, 0})
	assert.False(t, ok)

	// MaxLevel stops refinement.
	assert.Equal(t, 0, h.Refine(3, RadiusFlag{center, 10}))
}

func TestRefineDerefineFluid(t *testing.T) {
	err := mpi.Run(1, func(comm mpi.Comm) error {
		h := testHierarchy(t, true, 1)
		h.AllocateFluid(0)
		root := h.Leaves()[0]
		for c := 0; c < CellsPerPatch; c++ {
			root.Field(Dens)[c] = float64(c)
		}

		h.Refine(0, RadiusFlag{mgl64.Vec3{0, 0, 0}, 0.1})
		child := root.Children[7]
		require.NotNil(t, child.Fluid)
		// Child 7 covers the upper half of the parent on every axis.
		assert.Nil(t, root.Fluid)
		parentCell := float64(CellIndex(4, 4, 4))
		assert.Equal(t, parentCell, child.Field(Dens)[CellIndex(0, 1, 0)])

		n := h.Derefine(comm, 0, ParticleFlag{})
		assert.Equal(t, 1, n)
		require.NotNil(t, root.Fluid)
		for c := 0; c < CellsPerPatch; c++ {
			if root.Field(Dens)[c] != float64(c) {
				t.Errorf("Expected cell %d to have density %d after "+
					"refining and derefining, got %g.", c, c,
					root.Field(Dens)[c])
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func randomRepository(n int, seed uint32) *particles.Repository {
	repo := particles.NewRepository()
	x := seed
	next := func() float64 {
		x = x*1664525 + 1013904223
		return float64(x>>8) / float64(1<<24)
	}
	for i := 0; i < n; i++ {
		repo.Append(particles.Particle{
			Mass: 1, Pos: [3]float64{next(), next(), next()},
		})
	}
	return repo
}

func TestBindCheck(t *testing.T) {
	h := testHierarchy(t, true, 1)
	h.Refine(0, RadiusFlag{mgl64.Vec3{0.5, 0.5, 0.5}, 0.2})
	repo := randomRepository(500, 7)

	require.NoError(t, Bind(h, repo, 0))
	require.NoError(t, Check(h, repo, 0))

	total := 0
	for _, p := range h.Leaves() {
		total += p.NPar()
		assert.Equal(t, p.NPar() > 0, p.HasParticles())
	}
	assert.Equal(t, 500, total)

	roots := h.Level(0)
	sum := 0
	for _, p := range roots {
		sum += NParInDescendant(p)
	}
	assert.Equal(t, 500, sum)

	// Compaction makes every list stale.
	repo.Remove(3)
	repo.Compact()
	assert.Error(t, Check(h, repo, 0))
	require.NoError(t, Bind(h, repo, 0))
	require.NoError(t, Check(h, repo, 0))

	// Particles outside the box can't be bound.
	repo.Set(0, particles.PosX, 1.5)
	assert.Error(t, Bind(h, repo, 0))
}

func TestGlobalCountsAndParticleFlag(t *testing.T) {
	nRank := 2
	refined := make([]int, nRank)
	err := mpi.Run(nRank, func(comm mpi.Comm) error {
		h := testHierarchy(t, true, nRank)
		repo := particles.NewRepository()
		// Rank r puts 3 particles in the leaf it owns that comes first.
		leaf := h.LocalLeaves(comm.Rank())[0]
		c := leaf.CellCenter(1, 1, 1)
		for i := 0; i < 3; i++ {
			repo.Append(particles.Particle{Pos: [3]float64{c[0], c[1], c[2]}})
		}
		if err := Bind(h, repo, comm.Rank()); err != nil {
			return err
		}

		counts := h.GlobalCounts(comm)
		total := int64(0)
		for _, n := range counts {
			total += n
		}
		assert.Equal(t, int64(3*nRank), total)

		refined[comm.Rank()] = h.Refine(0, ParticleFlag{Min: 3})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, refined)
}

func TestMortonKey(t *testing.T) {
	assert.Equal(t, uint64(0), spread(0))
	assert.Equal(t, uint64(1), spread(1))
	assert.Equal(t, uint64(8), spread(2))
	assert.Equal(t, uint64(0x49), spread(7))

	h := testHierarchy(t, true, 1)
	keys := map[uint64]bool{}
	h.Refine(0, RadiusFlag{mgl64.Vec3{0.3, 0.3, 0.3}, 0.2})
	for _, p := range h.Leaves() {
		k := h.mortonKey(p)
		if keys[k] {
			t.Errorf("Morton key %d is used twice.", k)
		}
		keys[k] = true
	}
}

func TestBalance(t *testing.T) {
	h := testHierarchy(t, true, 4)
	weights := []int64{1, 1, 1, 1, 1, 1, 1, 1}
	owners := h.balance(weights)
	counts := make([]int, 4)
	for _, r := range owners {
		counts[r]++
	}
	assert.Equal(t, []int{2, 2, 2, 2}, counts)

	// One heavy leaf gets a rank to itself.
	weights[0] = 100
	owners = h.balance(weights)
	for i := 1; i < len(owners); i++ {
		if owners[i] == owners[0] {
			t.Errorf("Leaf %d shares a rank with the heavy leaf.", i)
		}
	}
}

func TestLoadBalanceRehome(t *testing.T) {
	nRank := 3
	err := mpi.Run(nRank, func(comm mpi.Comm) error {
		rank := comm.Rank()
		h := testHierarchy(t, true, nRank)
		h.AllocateFluid(rank)
		for _, p := range h.LocalLeaves(rank) {
			for c := range p.Field(Dens) {
				p.Field(Dens)[c] = p.Min[0] + 2*p.Min[1] + 4*p.Min[2]
			}
		}

		// Every rank starts with particles everywhere.
		repo := randomRepository(300, uint32(rank+1))
		if _, err := exchange.Rehome(comm, repo, h); err != nil {
			return err
		}
		if err := Bind(h, repo, rank); err != nil {
			return err
		}

		h.Refine(0, RadiusFlag{mgl64.Vec3{0.25, 0.25, 0.25}, 0.1})
		if err := Bind(h, repo, rank); err != nil {
			return err
		}
		counts := h.GlobalCounts(comm)
		weights := make([]int64, len(counts))
		for i := range counts {
			weights[i] = counts[i] + 1
		}
		h.LoadBalance(comm, weights)

		stats, err := exchange.Rehome(comm, repo, h)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(900), stats.After)
		if err := Bind(h, repo, rank); err != nil {
			return err
		}
		if err := Check(h, repo, rank); err != nil {
			return err
		}

		// Fluid followed the leaves.
		for _, p := range h.Leaves() {
			if p.Owner != rank {
				assert.Nil(t, p.Fluid)
				continue
			}
			if !assert.NotNil(t, p.Fluid) {
				continue
			}
			root := p
			for root.Parent != nil {
				root = root.Parent
			}
			expect := root.Min[0] + 2*root.Min[1] + 4*root.Min[2]
			assert.Equal(t, expect, p.Field(Dens)[0])
		}
		return nil
	})
	require.NoError(t, err)
}
