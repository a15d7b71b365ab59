/*package record aggregates diagnostics across ranks and writes them to flat
text logs on the root rank.

Every recorder is collective: all ranks must call Record at the same steps,
since each one runs at least one reduction. Only the root rank touches the
file system.
*/
package record

import (
	"fmt"

	"github.com/phil-mansfield/amrpar/lib/format"
	"github.com/phil-mansfield/amrpar/lib/mpi"
)

// Recorder writes one row of diagnostics.
type Recorder interface {
	Name() string
	Record(time float64, step int) error
}

// Type assertions
var (
	_ Recorder = &CenterRecorder{}
	_ Recorder = &SinkRecorder{}
	_ Recorder = &BoundRecorder{}
)

// Cadence decides which steps get recorded.
type Cadence struct {
	// Interval records every Interval steps. It's ignored if Steps is
	// non-nil.
	Interval int
	Steps    format.Sequence
}

// NewCadence creates a Cadence from an interval and an optional sequence
// format string.
func NewCadence(interval int, steps string) (*Cadence, error) {
	c := &Cadence{Interval: interval}
	if steps != "" {
		seq, err := format.ParseSequence(steps)
		if err != nil {
			return nil, fmt.Errorf("The record step sequence '%s' is "+
				"invalid: %s", steps, err.Error())
		}
		c.Steps = seq
	} else if interval <= 0 {
		return nil, fmt.Errorf("The record interval must be positive, "+
			"but is %d.", interval)
	}
	return c, nil
}

// Due returns true if step should be recorded.
func (c *Cadence) Due(step int) bool {
	if c.Steps != nil {
		return c.Steps.Contains(step)
	}
	return step%c.Interval == 0
}

// RecordAll runs every recorder if step is due.
func RecordAll(recs []Recorder, c *Cadence, time float64, step int) error {
	if !c.Due(step) {
		return nil
	}
	for _, rec := range recs {
		if err := rec.Record(time, step); err != nil {
			return fmt.Errorf("Could not write %s: %s", rec.Name(), err.Error())
		}
	}
	return nil
}

func isRoot(comm mpi.Comm) bool { return comm.Rank() == mpi.Root }
