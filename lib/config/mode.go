package config

// RunMode indicates whether ranks are goroutines in a single process or MPI
// processes.
type RunMode int

const (
	LocalMode RunMode = iota
	MPIMode
)

func (m RunMode) String() string {
	switch m {
	case LocalMode:
		return "Local"
	case MPIMode:
		return "MPI"
	}
	return "Unknown"
}

// RunMode returns the mode named by Mode. CheckInit must have been called.
func (con *RunConfig) RunMode() RunMode {
	if con.Mode == "MPI" {
		return MPIMode
	}
	return LocalMode
}
