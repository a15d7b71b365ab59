package main

import (
	"fmt"
	"log"
	"os"

	"github.com/phil-mansfield/amrpar/lib/config"
	g_error "github.com/phil-mansfield/amrpar/lib/error"
	"github.com/phil-mansfield/amrpar/lib/mpi"
	"github.com/phil-mansfield/amrpar/lib/sim"
	"github.com/phil-mansfield/amrpar/lib/srcterms"
)

const usage = `amrpar runs particles through an adaptive mesh hierarchy across ranks.

Usage:
    amrpar help
    amrpar check    <config file> [--Section.Key value ...]
    amrpar generate <config file> [--Section.Key value ...]
    amrpar run      <config file> [--Section.Key value ...]

Subsection keys are given as --Section.Name.Key, e.g. --Source.halo.Label true.
An example config file with every option documented follows.
`

func main() {
	// Parse arguments.
	mode, configFile, overrides, err := config.ParseCommandLine(os.Args[1:])
	if err != nil {
		g_error.External("%s Run 'amrpar help' for usage.", err.Error())
	}

	if mode == "help" {
		fmt.Print(usage)
		fmt.Println()
		os.Stdout.WriteString(config.Example)
		return
	}

	c, err := config.ReadFile(configFile, overrides)
	if err != nil {
		g_error.External("%s", err.Error())
	}

	if c.Run.LogFile != "" {
		f, err := os.OpenFile(c.Run.LogFile,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			g_error.External("Could not open the log file: %s", err.Error())
		}
		defer f.Close()
		log.SetOutput(f)
	}

	if err := srcterms.SetThreads(c.Run.Threads); err != nil {
		g_error.External("%s", err.Error())
	}

	// Run the chosen mode.
	switch mode {
	case "check":
		Check(c)
	case "generate":
		Generate(c)
	case "run":
		Run(c)
	default:
		g_error.External(
			"You attempted to run amrpar in the mode '%s', but the only "+
				"valid modes are 'help', 'check', 'generate', and 'run'.", mode,
		)
	}
}

// Check runs amrpar's "check" mode, which tests for errors in the
// configuration and the input particle files without moving any particles.
func Check(c *config.Config) {
	if err := sim.Check(c); err != nil {
		g_error.External("%s", err.Error())
	}
	fmt.Println("No errors detected.")
}

// Generate runs amrpar's "generate" mode, which writes a particle file for
// every source that has no input files.
func Generate(c *config.Config) {
	fnames, err := sim.Generate(c)
	if err != nil {
		g_error.External("%s", err.Error())
	}
	for _, fname := range fnames {
		fmt.Println(fname)
	}
}

// Run runs amrpar's "run" mode, which loads every source and steps the
// simulation.
func Run(c *config.Config) {
	switch c.Run.RunMode() {
	case config.LocalMode:
		err := mpi.Run(c.Run.Ranks, func(comm mpi.Comm) error {
			return sim.Execute(comm, c)
		})
		report(err)
	case config.MPIMode:
		comm, err := mpi.Init()
		if err != nil {
			g_error.External("%s", err.Error())
		}
		if err := sim.Execute(comm, c); err != nil {
			log.Printf("Rank %d failed with the following error:\n%s",
				comm.Rank(), err.Error())
			comm.Abort(err)
		}
		mpi.Finalize()
	}
}

func report(err error) {
	if err == nil {
		return
	}
	if perr, ok := err.(*mpi.PanicError); ok {
		g_error.Internal("%s", perr.Error())
	}
	g_error.External("%s", err.Error())
}
