package record

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/particles"
	"github.com/phil-mansfield/gravitree"
	"gonum.org/v1/gonum/floats"
)

// boundStride is the number of values gathered per particle: the offset
// from the center, the velocity, and the mass.
const boundStride = 7

// BoundRecorder records the fraction of the mass within Radius of each
// center which is gravitationally bound to it. Potentials come from a tree
// over the gathered particles and assume every particle has the mean mass.
type BoundRecorder struct {
	Comm    mpi.Comm
	Repo    *particles.Repository
	NCenter int
	// Radius, Eps, and G are in code units.
	Radius, Eps, G float64
	Log            *Log
}

// NewBoundRecorder creates a BoundRecorder writing to path.
func NewBoundRecorder(
	comm mpi.Comm, repo *particles.Repository, nCenter int,
	radius, eps, g float64, path string, db *Database,
) *BoundRecorder {
	cols := []string{}
	for c := 0; c < nCenter; c++ {
		cols = append(cols, fmt.Sprintf("N%d", c),
			fmt.Sprintf("fBound%d", c))
	}
	return &BoundRecorder{
		comm, repo, nCenter, radius, eps, g, NewLog(path, cols, db),
	}
}

func (rec *BoundRecorder) Name() string { return "Record__Bound" }

// Record gathers the particles around each center to the root rank. Centers
// which no longer exist are written as N = 0, fBound = -1.
func (rec *BoundRecorder) Record(time float64, step int) error {
	row := make([]float64, 0, 2*rec.NCenter)
	for c := 0; c < rec.NCenter; c++ {
		cen, ok := Locate(rec.Comm, rec.Repo, c)
		if !ok {
			row = append(row, 0, -1)
			continue
		}

		buf := rec.near(cen)
		all, _ := rec.Comm.GathervFloat64(buf, mpi.Root)
		if isRoot(rec.Comm) {
			n := len(all) / boundStride
			row = append(row, float64(n), BoundFraction(all, rec.Eps, rec.G))
		}
	}

	if !isRoot(rec.Comm) {
		return nil
	}
	return rec.Log.Write(time, step, row)
}

func (rec *BoundRecorder) near(cen [3]float64) []float64 {
	buf := []float64{}
	r2 := rec.Radius * rec.Radius
	for i := 0; i < rec.Repo.NSlot(); i++ {
		if !rec.Repo.Live(i) {
			continue
		}
		x := rec.Repo.Pos(i)
		dx := [3]float64{x[0] - cen[0], x[1] - cen[1], x[2] - cen[2]}
		if dx[0]*dx[0]+dx[1]*dx[1]+dx[2]*dx[2] > r2 {
			continue
		}
		v := rec.Repo.Vel(i)
		buf = append(buf, dx[0], dx[1], dx[2], v[0], v[1], v[2],
			rec.Repo.Get(i, particles.Mass))
	}
	return buf
}

// BoundFraction returns the fraction of the mass in buf which has negative
// energy relative to the center-of-mass velocity. buf is a flat array of
// (dx, dy, dz, vx, vy, vz, mass) values. It returns -1 if buf is empty.
func BoundFraction(buf []float64, eps, g float64) float64 {
	n := len(buf) / boundStride
	if n == 0 {
		return -1
	}

	dx := make([][3]float64, n)
	mass := make([]float64, n)
	vCM := [3]float64{}
	for i := range dx {
		p := buf[i*boundStride : (i+1)*boundStride]
		dx[i] = [3]float64{p[0], p[1], p[2]}
		mass[i] = p[6]
		for k := 0; k < 3; k++ {
			vCM[k] += p[3+k] * p[6]
		}
	}
	mTot := floats.Sum(mass)
	if mTot <= 0 {
		return -1
	}
	for k := range vCM {
		vCM[k] /= mTot
	}

	pe := make([]float64, n)
	if n > 1 {
		tree := gravitree.NewTree(dx)
		tree.Potential(eps, pe)
	}
	mp := mTot / float64(n)

	mBound := 0.0
	for i := range dx {
		p := buf[i*boundStride : (i+1)*boundStride]
		ke := 0.0
		for k := 0; k < 3; k++ {
			dv := p[3+k] - vCM[k]
			ke += dv * dv
		}
		ke /= 2
		if ke+pe[i]*g*mp < 0 {
			mBound += mass[i]
		}
	}

	return mBound / mTot
}
