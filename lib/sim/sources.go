package sim

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/phil-mansfield/amrpar/lib/compress"
	"github.com/phil-mansfield/amrpar/lib/config"
	"github.com/phil-mansfield/amrpar/lib/exchange"
	"github.com/phil-mansfield/amrpar/lib/format"
	"github.com/phil-mansfield/amrpar/lib/particles"
	"github.com/phil-mansfield/amrpar/lib/snapio"
)

// maxPlummerMass is the fraction of a Plummer sphere's mass which is
// sampled. The rest is at very large radii.
const maxPlummerMass = 0.999

// Units converts the [Units] section into the units Load expects.
func Units(c *config.Config) exchange.Units {
	return exchange.Units{
		Length:   c.Units.Length,
		Mass:     c.Units.Mass,
		Velocity: c.Units.Length / c.Units.Time,
	}
}

// Sources builds the particle sources in c, in alphabetical order.
func Sources(c *config.Config) ([]exchange.Source, error) {
	names := c.SourceNames()
	out := make([]exchange.Source, len(names))
	units := Units(c)

	for i, name := range names {
		src := c.Source[name]
		profile, err := exchange.ParseProfile(src.Profile, src.Radius,
			src.Width)
		if err != nil {
			return nil, fmt.Errorf("Source '%s': %s", name, err.Error())
		}

		out[i] = exchange.Source{
			Name:    name,
			Center:  [3]float64{src.CenterX, src.CenterY, src.CenterZ},
			BulkVel: [3]float64{src.BulkVX, src.BulkVY, src.BulkVZ},
			Profile: profile,
			Label:   src.Label,
		}

		if src.Files != "" {
			fnames, err := format.ExpandFileFormat(src.Files)
			if err != nil {
				return nil, fmt.Errorf("Source '%s': %s", name, err.Error())
			}
			out[i].Open = func() (snapio.Reader, error) {
				return snapio.OpenAll(fnames)
			}
		} else {
			src := *src
			out[i].Open = func() (snapio.Reader, error) {
				return Plummer(&src, units)
			}
		}
	}

	return out, nil
}

// Plummer samples a Plummer sphere centered on the origin and at rest, as
// described by src's Generate* variables. Values are in cgs, like values
// read from files. G = 1 in code units.
func Plummer(src *config.SourceConfig, units exchange.Units) (*snapio.Memory, error) {
	n := int(src.GenerateN)
	a, mTot := src.GenerateScaleRadius, src.GenerateMass
	gen := compress.NewRNG(src.GenerateSeed)

	x, v := make([]float64, 3*n), make([]float64, 3*n)
	m, typ := make([]float64, n), make([]float64, n)
	vScale := math.Sqrt(mTot / a)

	for i := 0; i < n; i++ {
		u := maxPlummerMass * gen.Uniform()
		for u == 0 {
			u = maxPlummerMass * gen.Uniform()
		}
		r := a / math.Sqrt(math.Pow(u, -2.0/3)-1)

		// Aarseth, Henon & Wielen (1974) rejection sampling of q = v/vEsc.
		q, g := 0.0, 1.0
		for g > q*q*math.Pow(1-q*q, 3.5) {
			q, g = gen.Uniform(), 0.1*gen.Uniform()
		}
		vEsc := math.Sqrt2 * vScale * math.Pow(1+r*r/(a*a), -0.25)

		dx, dv := gen.UnitVector(), gen.UnitVector()
		for k := 0; k < 3; k++ {
			x[3*i+k] = r * dx[k] * units.Length
			v[3*i+k] = q * vEsc * dv[k] * units.Velocity
		}
		m[i] = mTot / float64(n) * units.Mass
		typ[i] = particles.TypeDarkMatter
	}

	mem := snapio.NewMemory(n)
	for _, ds := range []struct {
		name  string
		width int
		x     []float64
	}{
		{snapio.Position, 3, x}, {snapio.Velocity, 3, v},
		{snapio.Mass, 1, m}, {snapio.Type, 1, typ},
	} {
		if err := mem.Set(ds.name, ds.width, ds.x); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

// Generate writes every generated source in c to <Generate.Dir>/<name>.par
// and returns the names of the files.
func Generate(c *config.Config) ([]string, error) {
	units := Units(c)
	fnames := []string{}
	for _, name := range c.SourceNames() {
		src := c.Source[name]
		if src.GenerateN <= 0 {
			continue
		}

		mem, err := Plummer(src, units)
		if err != nil {
			return nil, err
		}
		fname := filepath.Join(c.Generate.Dir, name+".par")
		wr := snapio.NewWriter(fname, mem.Len(), c.Generate.ChunkSize)
		for _, ds := range snapio.Standard {
			buf, err := mem.ReadFloat64s(ds.Name, 0, mem.Len(), ds.Width, nil)
			if err != nil {
				return nil, err
			}
			if err = wr.Add(ds.Name, ds.Width, buf); err != nil {
				return nil, err
			}
		}
		if err = wr.Close(); err != nil {
			return nil, fmt.Errorf("Could not write %s: %s", fname,
				err.Error())
		}
		fnames = append(fnames, fname)
	}

	if len(fnames) == 0 {
		return nil, fmt.Errorf("No source sets GenerateN, so there is " +
			"nothing to generate.")
	}
	return fnames, nil
}
