package exchange

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/particles"
	"github.com/phil-mansfield/amrpar/lib/snapio"
	"gonum.org/v1/gonum/floats"
)

// Source is a single named particle source along with the transformations
// applied to its particles after they're read.
type Source struct {
	Name string
	// Open opens the source. It is called once on the root rank to read the
	// particle count and once on every rank with a non-empty share.
	Open func() (snapio.Reader, error)

	// Center is added to every position. It is also the point that radii
	// for Profile and labeling are measured from.
	Center [3]float64
	// BulkVel is added to every velocity.
	BulkVel [3]float64
	// Profile attenuates masses. nil is the same as None{}.
	Profile Profile
	// Label marks the particle closest to Center with the type
	// particles.TypeCenterBase + the source's index.
	Label bool
}

// Units gives the size of the code units in cgs. Values read from sources
// are in cgs and are divided by these. Zero fields are treated as 1.
type Units struct {
	Length, Mass, Velocity float64
}

// Options configures Load.
type Options struct {
	Units Units
	// NParAllRank is the expected total number of particles across every
	// source.
	NParAllRank int64
	// Time is the creation time given to every particle.
	Time float64
}

// Layout describes how Load split the sources.
type Layout struct {
	// Counts[s] is the number of particles in source s.
	Counts []int64
	// Shares[s][r] is the number of particles from source s on rank r.
	Shares [][]int64
	// Offsets[s] is the first row of source s read by this rank.
	Offsets []int64
	// First[s] is the repository index of this rank's first particle from
	// source s. These are only valid until the repository is compacted.
	First []int
	// Labels[s] is the repository index of source s's center particle on
	// this rank, or -1 if another rank holds it or the source is unlabeled.
	Labels []int
	// LabelRanks[s] is the rank holding source s's center particle, or -1.
	LabelRanks []int
}

// Load reads the particles in sources into repo. It must be called
// collectively, with identical sources and opts, on every rank.
func Load(
	comm mpi.Comm, repo *particles.Repository,
	sources []Source, opts Options,
) (*Layout, error) {
	rank, nRank := comm.Rank(), comm.Size()
	lay := &Layout{
		Counts:  make([]int64, len(sources)),
		Shares:  make([][]int64, len(sources)),
		Offsets: make([]int64, len(sources)),
		First:   make([]int, len(sources)),
	}

	// The root rank reads the counts and tells everyone else.
	var openErr error
	if rank == mpi.Root {
		lay.Counts, openErr = readCounts(sources)
	}
	comm.BcastInt64(lay.Counts, mpi.Root)
	for s := range sources {
		if lay.Counts[s] < 0 {
			if openErr != nil {
				return nil, openErr
			}
			return nil, fmt.Errorf("The root rank could not open the "+
				"particle source %s.", sources[s].Name)
		}
	}

	total := sumInt64s(lay.Counts)
	if total != opts.NParAllRank {
		return nil, &InvariantError{
			"total particle count over all sources", total, opts.NParAllRank,
		}
	}

	nNew := int64(0)
	for s := range sources {
		share := Share(lay.Counts[s], nRank, rank)
		lay.Shares[s] = comm.AllgatherInt64(share)
		if sum := sumInt64s(lay.Shares[s]); sum != lay.Counts[s] {
			return nil, &InvariantError{
				fmt.Sprintf("sum of rank shares of source %s",
					sources[s].Name), sum, lay.Counts[s],
			}
		}
		lay.Offsets[s] = Offsets(lay.Shares[s])[rank]
		nNew += share
	}

	repo.Allocate(repo.NSlot() + int(nNew))

	readErr := readShares(repo, sources, opts, lay, rank)
	if err := agree(comm, readErr, "reading particle sources"); err != nil {
		return nil, err
	}

	transform(repo, sources, lay, rank)

	lay.Labels, lay.LabelRanks = make([]int, len(sources)),
		make([]int, len(sources))
	for s := range sources {
		lay.Labels[s], lay.LabelRanks[s] = -1, -1
	}
	if err := label(comm, repo, sources, lay); err != nil {
		return nil, err
	}

	return lay, nil
}

// readCounts opens every source and returns its length. Sources which
// can't be opened have a count of -1 and the first such error is returned.
func readCounts(sources []Source) ([]int64, error) {
	counts := make([]int64, len(sources))
	var firstErr error
	for s := range sources {
		rd, err := sources[s].Open()
		if err == nil {
			err = snapio.CheckStandard(rd, sources[s].Name)
			if err == nil {
				counts[s] = int64(rd.Len())
			}
			rd.Close()
		}
		if err != nil {
			counts[s] = -1
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return counts, firstErr
}

// agree makes every rank return an error if any rank had a local error.
func agree(comm mpi.Comm, err error, step string) error {
	flag := int64(0)
	if err != nil {
		flag = 1
	}
	if comm.AllreduceInt64(mpi.OpMax, []int64{flag})[0] == 0 {
		return nil
	}
	if err != nil {
		return err
	}
	return remoteError(step)
}

// readShares reads this rank's slice of every source into contiguous
// repository slots, in source order.
func readShares(
	repo *particles.Repository, sources []Source, opts Options,
	lay *Layout, rank int,
) error {
	var buf []float64
	for s := range sources {
		share := int(lay.Shares[s][rank])
		lay.First[s] = repo.NSlot()
		if share == 0 {
			continue
		}

		rd, err := sources[s].Open()
		if err != nil {
			return err
		}

		first := repo.AppendN(share)
		off := int(lay.Offsets[s])

		reads := []struct {
			name  string
			attrs []particles.AttrID
			unit  float64
		}{
			{snapio.Position, []particles.AttrID{
				particles.PosX, particles.PosY, particles.PosZ,
			}, opts.Units.Length},
			{snapio.Velocity, []particles.AttrID{
				particles.VelX, particles.VelY, particles.VelZ,
			}, opts.Units.Velocity},
			{snapio.Mass, []particles.AttrID{particles.Mass}, opts.Units.Mass},
			{snapio.Type, []particles.AttrID{particles.Type}, 1},
		}

		for _, r := range reads {
			width, unit := len(r.attrs), r.unit
			if unit == 0 {
				unit = 1
			}
			buf, err = rd.ReadFloat64s(r.name, off, share, width, buf)
			if err != nil {
				rd.Close()
				return fmt.Errorf("Could not read '%s' from the particle "+
					"source %s: %s", r.name, sources[s].Name, err.Error())
			}
			for k, a := range r.attrs {
				data := repo.Attr(a)
				for i := 0; i < share; i++ {
					data[first+i] = buf[i*width+k] / unit
				}
			}
		}
		rd.Close()

		times := repo.Attr(particles.Time)
		for i := first; i < first+share; i++ {
			times[i] = opts.Time
		}
	}

	return nil
}

// transform shifts, boosts, and truncates the particles of every source.
func transform(
	repo *particles.Repository, sources []Source, lay *Layout, rank int,
) {
	for s := range sources {
		src := &sources[s]
		first, share := lay.First[s], int(lay.Shares[s][rank])
		profile := src.Profile
		if profile == nil {
			profile = None{}
		}

		for p := first; p < first+share; p++ {
			x, v := repo.Pos(p), repo.Vel(p)
			r2 := 0.0
			for k := 0; k < 3; k++ {
				r2 += x[k] * x[k]
				x[k] += src.Center[k]
				v[k] += src.BulkVel[k]
			}
			repo.SetPos(p, x)
			repo.SetVel(p, v)

			m := repo.Get(p, particles.Mass)
			repo.Set(p, particles.Mass, profile.Attenuate(m, math.Sqrt(r2)))
		}
	}
}

// label marks the particle closest to the center of each labeled source.
// The global minimum distance is found with a MIN reduction and ties
// between ranks go to the lowest rank.
func label(
	comm mpi.Comm, repo *particles.Repository,
	sources []Source, lay *Layout,
) error {
	idx := []int{}
	for s := range sources {
		if sources[s].Label {
			idx = append(idx, s)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	rank := comm.Rank()
	localD2 := make([]float64, len(idx))
	localP := make([]int, len(idx))
	var d2 []float64
	for i, s := range idx {
		first, share := lay.First[s], int(lay.Shares[s][rank])
		localD2[i], localP[i] = math.Inf(1), -1
		if share == 0 {
			continue
		}

		d2 = resize(d2, share)
		for j := range d2 {
			x := repo.Pos(first + j)
			dx := [3]float64{
				x[0] - sources[s].Center[0],
				x[1] - sources[s].Center[1],
				x[2] - sources[s].Center[2],
			}
			d2[j] = dx[0]*dx[0] + dx[1]*dx[1] + dx[2]*dx[2]
		}
		// MinIdx returns the first minimum, so ties within a rank go to
		// the lowest index.
		j := floats.MinIdx(d2)
		localD2[i], localP[i] = d2[j], first+j
	}

	globalD2 := comm.AllreduceFloat64(mpi.OpMin, localD2)

	candidates := make([]int64, len(idx))
	for i := range idx {
		candidates[i] = math.MaxInt64
		if localP[i] >= 0 && localD2[i] == globalD2[i] {
			candidates[i] = int64(rank)
		}
	}
	winners := comm.AllreduceInt64(mpi.OpMin, candidates)

	found := make([]int64, len(idx))
	for i, s := range idx {
		if winners[i] == math.MaxInt64 {
			continue
		}
		lay.LabelRanks[s] = int(winners[i])
		if winners[i] == int64(rank) {
			p := localP[i]
			repo.Set(p, particles.Type, particles.TypeCenterBase+float64(s))
			lay.Labels[s] = p
			found[i] = 1
		}
	}

	nFound := comm.AllreduceInt64(mpi.OpSum, found)
	for i, s := range idx {
		if nFound[i] != 1 {
			return &InvariantError{
				fmt.Sprintf("number of center particles labeled in "+
					"source %s", sources[s].Name), nFound[i], 1,
			}
		}
	}

	return nil
}

func resize(x []float64, n int) []float64 {
	if cap(x) >= n {
		return x[:n]
	}
	return make([]float64, n)
}
