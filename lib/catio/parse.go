package catio

import (
	"strconv"
)

func atoi(b []byte) (int, error) {
	x, err := strconv.ParseInt(string(b), 10, 64)
	return int(x), err
}

func atof(b []byte) (float64, error) {
	return strconv.ParseFloat(string(b), 64)
}
