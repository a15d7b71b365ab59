/*package exchange moves particles between particle sources and ranks. Load
reads initial conditions from a list of sources into the ranks'
repositories, splitting every source evenly across ranks, and Rehome sends
particles to whichever rank owns the part of the box that they're in.

Every collective step is followed by a validation of its result on every
rank, so a failure is seen by all ranks at the same point and no rank
proceeds with inconsistent state.
*/
package exchange

import (
	"fmt"
)

// InvariantError reports a violated global invariant: a particle count
// that doesn't add up or a label that doesn't exist exactly once. Runs
// cannot continue after one of these.
type InvariantError struct {
	// What describes the quantity that was checked.
	What   string
	Found  int64
	Expect int64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("Invariant violated for %s: found %d, but "+
		"expected %d.", e.What, e.Found, e.Expect)
}

// remoteError is returned on ranks which succeeded at a step that another
// rank failed at.
func remoteError(step string) error {
	return fmt.Errorf("Another rank failed while %s.", step)
}
