package exchange

import (
	"fmt"
)

// Share returns the number of particles out of n that rank gets when n is
// split over nRank ranks. Shares differ by at most one and the first
// n % nRank ranks get the larger share.
func Share(n int64, nRank, rank int) int64 {
	if nRank <= 0 || rank < 0 || rank >= nRank {
		panic(fmt.Sprintf("Internal error: rank %d in a world of %d ranks.",
			rank, nRank))
	}
	share := n / int64(nRank)
	if int64(rank) < n%int64(nRank) {
		share++
	}
	return share
}

// Offsets returns the prefix sums of shares: the offset of each rank's
// slice into the source.
func Offsets(shares []int64) []int64 {
	out := make([]int64, len(shares))
	for i := 1; i < len(shares); i++ {
		out[i] = out[i-1] + shares[i-1]
	}
	return out
}

func sumInt64s(x []int64) int64 {
	sum := int64(0)
	for i := range x {
		sum += x[i]
	}
	return sum
}
