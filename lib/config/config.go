/*package config reads amrpar's configuration files. Files use the gcfg
(git-config) syntax:

    [Run]
    NParAllRank = 200000
    Steps = 100

    [Source "halo_0"]
    Files = halo_0.{%d,0..3}.par
    CenterX = 0.5

Any variable can be overwritten from the command line with
--Section.Key value, or --Section.Name.Key value for named sections like
[Source "name"]. See Example for every section and variable.
*/
package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/gcfg.v1"
)

// Config is the full contents of a configuration file.
type Config struct {
	Run             RunConfig
	Units           UnitsConfig
	Box             BoxConfig
	Source          map[string]*SourceConfig
	SrcTerms        SrcTermsConfig
	Deleptonization DeleptonizationConfig
	Accretion       AccretionConfig
	Gas             GasConfig
	Record          RecordConfig
	Generate        GenerateConfig
}

// RunConfig controls the run as a whole.
type RunConfig struct {
	// Mode is "Local" (ranks are goroutines in one process) or "MPI".
	Mode string
	// Ranks is the number of ranks used in Local mode.
	Ranks int
	// Threads is the number of OS threads per rank. -1 uses every core.
	Threads     int
	NParAllRank int64
	Steps       int
	Dt, Time    float64
	// RegridInterval is the number of steps between regrids.
	RegridInterval int
	// LogFile, if set, receives log messages instead of stderr.
	LogFile string
}

// UnitsConfig gives the code units in cgs.
type UnitsConfig struct {
	Length, Mass, Time float64
}

// BoxConfig describes the simulation volume and its refinement.
type BoxConfig struct {
	X, Y, Z                float64
	NBaseX, NBaseY, NBaseZ int
	Periodic               bool
	MaxLevel               int
	// Cells within RefineRadius of the refinement center are refined. The
	// center is the middle of the box unless UseRefineCenter is set.
	RefineRadius                                float64
	RefineCenterX, RefineCenterY, RefineCenterZ float64
	UseRefineCenter                             bool
	// Patches holding at least RefineParticles particles are refined if
	// RefineParticles is positive.
	RefineParticles int64
}

// SourceConfig describes one particle source, e.g. a cluster.
type SourceConfig struct {
	// Files is a file template (see lib/format). If it's empty, a Plummer
	// sphere with GenerateN particles is created in memory.
	Files                     string
	CenterX, CenterY, CenterZ float64
	BulkVX, BulkVY, BulkVZ    float64
	// Profile is "None", "SoftExponential", "HardCutoff", or
	// "CubicExponential".
	Profile       string
	Radius, Width float64
	Label         bool

	GenerateN           int64
	GenerateScaleRadius float64
	GenerateMass        float64
	GenerateSeed        uint64

	Name string
}

// SrcTermsConfig configures the source-term solver.
type SrcTermsConfig struct {
	Modules []string
	// Backend is "cpu" or "device".
	Backend                   string
	Lanes                     int
	Gamma                     float64
	MinDens, MinPres, MinEint float64
}

type DeleptonizationConfig struct {
	Rho1, Rho2, Ye1, Ye2, Yec float64
}

type AccretionConfig struct {
	Radius, DensThreshold float64
	// Source is the index of the labeled source whose center is the sink.
	Source int
}

// GasConfig gives the uniform initial state of the gas.
type GasConfig struct {
	Dens, Pres, VX, VY, VZ, Ye float64
}

// RecordConfig controls the diagnostic logs.
type RecordConfig struct {
	Interval int
	// Steps is a sequence format (see lib/format). It overrides Interval.
	Steps               string
	Dir                 string
	Center, Sink, Bound bool
	BoundRadius, Eps, G float64
	Database            string
}

// GenerateConfig controls the "generate" mode.
type GenerateConfig struct {
	Dir       string
	ChunkSize int
}

// Default returns a Config with every default value set.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Mode: "Local", Ranks: 1, Threads: -1, Steps: 10, Dt: 1e-3,
			RegridInterval: 1,
		},
		Units: UnitsConfig{Length: 1, Mass: 1, Time: 1},
		Box: BoxConfig{
			X: 1, Y: 1, Z: 1, NBaseX: 2, NBaseY: 2, NBaseZ: 2,
			Periodic: true, MaxLevel: 2,
		},
		Source: map[string]*SourceConfig{},
		SrcTerms: SrcTermsConfig{
			Backend: "cpu", Gamma: 5.0 / 3, MinDens: 1e-10, MinPres: 1e-10,
			MinEint: 1e-10,
		},
		Gas: GasConfig{Dens: 1, Pres: 1, Ye: 0.5},
		Record: RecordConfig{
			Interval: 1, Dir: ".", Center: true, Sink: true,
			Eps: 1e-3, G: 1,
		},
		Generate: GenerateConfig{Dir: ".", ChunkSize: 1 << 16},
	}
}

// ReadFile reads fname, applies the command line overrides, and checks
// the result.
func ReadFile(fname string, overrides []Override) (*Config, error) {
	c := Default()
	if err := gcfg.ReadFileInto(c, fname); err != nil {
		return nil, fmt.Errorf("Could not parse the config file '%s': %s",
			fname, err.Error())
	}
	return finish(c, fname, overrides)
}

// ReadString is ReadFile for a config already in memory.
func ReadString(text string, overrides []Override) (*Config, error) {
	c := Default()
	if err := gcfg.ReadStringInto(c, text); err != nil {
		return nil, fmt.Errorf("Could not parse the config: %s", err.Error())
	}
	return finish(c, "<string>", overrides)
}

func finish(c *Config, fname string, overrides []Override) (*Config, error) {
	for _, o := range overrides {
		if err := gcfg.ReadStringInto(c, o.ini()); err != nil {
			return nil, fmt.Errorf("Could not apply the command line "+
				"argument %s: %s", o, err.Error())
		}
	}
	if err := c.CheckInit(); err != nil {
		return nil, fmt.Errorf("Invalid config file '%s': %s", fname,
			err.Error())
	}
	return c, nil
}

// SourceNames returns the source names in the order the sources are
// loaded. Sources are sorted by name so every rank agrees on the order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Source))
	for name := range c.Source {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleNames returns the enabled source terms. Modules may be given as
// several Modules lines, comma-separated lists, or both.
func (c *SrcTermsConfig) ModuleNames() []string {
	out := []string{}
	for _, m := range c.Modules {
		for _, name := range strings.Split(m, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
