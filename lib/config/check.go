package config

import (
	"fmt"
	"strings"
)

// CheckInit checks every section and fills in derived values.
func (c *Config) CheckInit() error {
	if err := c.Run.CheckInit(); err != nil {
		return err
	} else if err := c.Units.CheckInit(); err != nil {
		return err
	} else if err := c.Box.CheckInit(); err != nil {
		return err
	}

	if len(c.Source) == 0 {
		return fmt.Errorf("No [Source \"name\"] sections were given.")
	}
	for name, src := range c.Source {
		if err := src.CheckInit(name); err != nil {
			return err
		}
	}

	if err := c.SrcTerms.CheckInit(); err != nil {
		return err
	} else if err := c.Record.CheckInit(); err != nil {
		return err
	}

	names := c.SourceNames()
	nLabel := 0
	for _, name := range names {
		if c.Source[name].Label {
			nLabel++
		}
	}
	for _, m := range c.SrcTerms.ModuleNames() {
		if m != "Accretion" {
			continue
		}
		i := c.Accretion.Source
		if i < 0 || i >= len(names) || !c.Source[names[i]].Label {
			return fmt.Errorf("[Accretion] Source = %d, but that isn't "+
				"the index of a source with Label = true. Sources are "+
				"indexed in alphabetical order: %s.", i, names)
		}
	}
	if (c.Record.Center || c.Record.Bound) && nLabel == 0 {
		return fmt.Errorf("[Record] Center and Bound need at least one " +
			"source with Label = true. Set them to false, or label a " +
			"source.")
	}

	return nil
}

func (con *RunConfig) CheckInit() error {
	switch strings.ToLower(con.Mode) {
	case "local":
		con.Mode = "Local"
		if con.Ranks <= 0 {
			return fmt.Errorf("[Run] Ranks must be positive, but is %d.",
				con.Ranks)
		}
	case "mpi":
		con.Mode = "MPI"
	default:
		return fmt.Errorf("[Run] Mode = '%s', but it must be 'Local' or "+
			"'MPI'.", con.Mode)
	}

	if con.Threads == 0 || con.Threads < -1 {
		return fmt.Errorf("[Run] Threads must be positive or -1, but is %d.",
			con.Threads)
	} else if con.NParAllRank <= 0 {
		return fmt.Errorf("[Run] NParAllRank must be set to the total " +
			"number of particles in all sources.")
	} else if con.Steps < 0 {
		return fmt.Errorf("[Run] Steps must be non-negative, but is %d.",
			con.Steps)
	} else if con.Dt <= 0 {
		return fmt.Errorf("[Run] Dt must be positive, but is %g.", con.Dt)
	} else if con.RegridInterval <= 0 {
		return fmt.Errorf("[Run] RegridInterval must be positive, but "+
			"is %d.", con.RegridInterval)
	}
	return nil
}

func (con *UnitsConfig) CheckInit() error {
	if con.Length <= 0 || con.Mass <= 0 || con.Time <= 0 {
		return fmt.Errorf("[Units] Length, Mass, and Time must all be "+
			"positive, but they are %g, %g, and %g.",
			con.Length, con.Mass, con.Time)
	}
	return nil
}

func (con *BoxConfig) CheckInit() error {
	if con.X <= 0 || con.Y <= 0 || con.Z <= 0 {
		return fmt.Errorf("[Box] X, Y, and Z must all be positive, but "+
			"they are %g, %g, and %g.", con.X, con.Y, con.Z)
	} else if con.NBaseX <= 0 || con.NBaseY <= 0 || con.NBaseZ <= 0 {
		return fmt.Errorf("[Box] NBaseX, NBaseY, and NBaseZ must all be "+
			"positive, but they are %d, %d, and %d.",
			con.NBaseX, con.NBaseY, con.NBaseZ)
	} else if con.MaxLevel < 0 {
		return fmt.Errorf("[Box] MaxLevel must be non-negative, but is %d.",
			con.MaxLevel)
	} else if con.RefineRadius < 0 {
		return fmt.Errorf("[Box] RefineRadius must be non-negative, but "+
			"is %g.", con.RefineRadius)
	}

	if !con.UseRefineCenter {
		con.RefineCenterX = con.X / 2
		con.RefineCenterY = con.Y / 2
		con.RefineCenterZ = con.Z / 2
	}
	return nil
}

func (src *SourceConfig) CheckInit(name string) error {
	src.Name = name

	if src.Files == "" {
		if src.GenerateN <= 0 {
			return fmt.Errorf("Source '%s' needs either Files or a "+
				"positive GenerateN.", name)
		} else if src.GenerateScaleRadius <= 0 || src.GenerateMass <= 0 {
			return fmt.Errorf("Source '%s' generates its particles, so "+
				"GenerateScaleRadius and GenerateMass must be positive.",
				name)
		}
	}

	if src.Profile == "" {
		src.Profile = "None"
	}
	if strings.ToLower(src.Profile) != "none" && src.Radius <= 0 {
		return fmt.Errorf("Source '%s' uses the %s profile, so it needs "+
			"a positive Radius.", name, src.Profile)
	} else if src.Width < 0 {
		return fmt.Errorf("Source '%s' has a negative Width, %g.",
			name, src.Width)
	}
	return nil
}

func (con *SrcTermsConfig) CheckInit() error {
	if con.Gamma <= 1 {
		return fmt.Errorf("[SrcTerms] Gamma must be larger than 1, but "+
			"is %g.", con.Gamma)
	} else if con.MinDens < 0 || con.MinPres < 0 || con.MinEint < 0 {
		return fmt.Errorf("[SrcTerms] floors must be non-negative.")
	}
	return nil
}

func (con *RecordConfig) CheckInit() error {
	if con.Steps == "" && con.Interval <= 0 {
		return fmt.Errorf("[Record] Interval must be positive, but is %d.",
			con.Interval)
	} else if con.Bound && con.BoundRadius <= 0 {
		return fmt.Errorf("[Record] Bound is set, so BoundRadius must be " +
			"positive.")
	}
	if con.Dir == "" {
		con.Dir = "."
	}
	return nil
}
