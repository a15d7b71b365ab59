package sim

import (
	"log"

	"github.com/phil-mansfield/amrpar/lib/mpi"
)

// Messenger prints progress messages from the root rank only, so a run on
// many ranks logs each message once.
type Messenger struct {
	Rank int
}

// Rank0f logs a formatted message if this is the root rank.
func (m Messenger) Rank0f(format string, args ...interface{}) {
	if m.Rank == mpi.Root {
		log.Printf(format, args...)
	}
}
