package sim

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/config"
	"github.com/phil-mansfield/amrpar/lib/exchange"
	"github.com/phil-mansfield/amrpar/lib/snapio"
)

// Check runs the "check" mode: it opens every particle source, checks that
// each has the standard datasets and that the sources hold NParAllRank
// particles in total, and builds the source-term solver. It doesn't need
// more than one rank.
func Check(c *config.Config) error {
	sources, err := Sources(c)
	if err != nil {
		return err
	}

	total := int64(0)
	for _, src := range sources {
		rd, err := src.Open()
		if err != nil {
			return fmt.Errorf("Could not open source '%s': %s", src.Name,
				err.Error())
		}
		err = snapio.CheckStandard(rd, src.Name)
		total += int64(rd.Len())
		rd.Close()
		if err != nil {
			return err
		}
	}
	if total != c.Run.NParAllRank {
		return &exchange.InvariantError{
			What:   "total particle count over all sources",
			Found:  total,
			Expect: c.Run.NParAllRank,
		}
	}

	solver, err := NewSolver(c, func() ([3]float64, bool) {
		return [3]float64{}, false
	})
	if err != nil {
		return err
	}
	solver.End()

	return nil
}
