/*package eq is a simple package for telling whether two arrays are equal to
one another. The Bits* functions compare floating point values by their bit
patterns, which is what determinism tests need: two NaNs with the same
payload are equal and 0 and -0 are not.*/
package eq

import (
	"math"
)

// Ints returns true if two []int arrays are the same and false otherwise.
func Ints(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Int64s returns true if two []int64 arrays are the same and false otherwise.
func Int64s(x, y []int64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Float64s returns true if two []float64 arrays are the same and false
// otherwise.
func Float64s(x, y []float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Vec64s returns true if two [][3]float64 arrays are the same and false
// otherwise.
func Vec64s(x, y [][3]float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Float64sEps returns true if the two []float64 arrays are within eps of one
// another and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i]+eps < y[i] || x[i]-eps > y[i] {
			return false
		}
	}
	return true
}

// BitsFloat64s returns true if every element of x has exactly the same bit
// pattern as the corresponding element of y.
func BitsFloat64s(x, y []float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if math.Float64bits(x[i]) != math.Float64bits(y[i]) {
			return false
		}
	}
	return true
}
