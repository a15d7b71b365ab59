package record

// Accumulator collects the mass, momentum, and energy removed from the gas
// by sink terms since it was last reset. It is owned by the run driver and
// passed by reference to the code which adds to it.
type Accumulator struct {
	Mass   float64
	Mom    [3]float64
	Energy float64
}

// Add adds y to acc.
func (acc *Accumulator) Add(y *Accumulator) {
	acc.Mass += y.Mass
	acc.Mom[0] += y.Mom[0]
	acc.Mom[1] += y.Mom[1]
	acc.Mom[2] += y.Mom[2]
	acc.Energy += y.Energy
}

// Reset zeroes acc.
func (acc *Accumulator) Reset() { *acc = Accumulator{} }

// Slice returns the accumulator's values in column order: mass, momentum,
// energy.
func (acc *Accumulator) Slice() []float64 {
	return []float64{acc.Mass, acc.Mom[0], acc.Mom[1], acc.Mom[2], acc.Energy}
}
