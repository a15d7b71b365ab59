package record

import (
	"github.com/phil-mansfield/amrpar/lib/mpi"
)

// SinkRecorder records the mass, momentum, and energy removed from the gas
// by sink terms since the last record, in cgs units.
type SinkRecorder struct {
	Comm mpi.Comm
	Acc  *Accumulator
	// Code units in cgs.
	UnitM, UnitV float64
	Log          *Log
}

// NewSinkRecorder creates a SinkRecorder writing to path.
func NewSinkRecorder(
	comm mpi.Comm, acc *Accumulator, unitM, unitV float64,
	path string, db *Database,
) *SinkRecorder {
	cols := []string{"Mass", "MomX", "MomY", "MomZ", "Energy"}
	return &SinkRecorder{comm, acc, unitM, unitV, NewLog(path, cols, db)}
}

func (rec *SinkRecorder) Name() string { return "Record__Sink" }

// Record sums the accumulators of every rank to the root rank and then
// resets them.
func (rec *SinkRecorder) Record(time float64, step int) error {
	row := rec.Comm.ReduceFloat64(mpi.OpSum, rec.Acc.Slice(), mpi.Root)
	rec.Acc.Reset()
	if !isRoot(rec.Comm) {
		return nil
	}

	row[0] *= rec.UnitM
	for k := 1; k <= 3; k++ {
		row[k] *= rec.UnitM * rec.UnitV
	}
	row[4] *= rec.UnitM * rec.UnitV * rec.UnitV

	return rec.Log.Write(time, step, row)
}
