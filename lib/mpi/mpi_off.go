//go:build !mpi
// +build !mpi

package mpi

import (
	"fmt"
)

// Enabled is true if amrpar was compiled against an MPI library.
const Enabled = false

// Init always fails when amrpar is compiled without the mpi build tag.
func Init() (Comm, error) {
	return nil, fmt.Errorf("amrpar was compiled without MPI support. " +
		"Rebuild with '-tags mpi' or run with RunMode = Local.")
}

func Finalize() {}
