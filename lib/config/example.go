package config

// Example is an example configuration file which documents every variable.
// It is printed by the help mode.
const Example = `[Run]

#######################
# Required Parameters #
#######################

# Total number of particles in all sources. Loading fails if the sources
# don't contain exactly this many.
NParAllRank = 20000

#######################
# Optional Parameters #
#######################

# Local runs every rank as a goroutine inside one process. MPI needs a
# binary built with '-tags mpi' and should be launched with mpirun.
# Mode = Local
# Ranks = 4

# Threads per rank. -1 uses every core.
# Threads = -1

# Steps = 10
# Dt = 1e-3
# Time = 0
# RegridInterval = 1
# LogFile = amrpar.log

[Units]
# Code units in cgs.
# Length = 3.08567758149e24
# Mass = 1.98847e47
# Time = 3.15576e16

[Box]
# X = 1
# Y = 1
# Z = 1
# NBaseX = 2
# NBaseY = 2
# NBaseZ = 2
# Periodic = true
# MaxLevel = 2

# Cells within RefineRadius of the refinement center are refined. The center
# is the middle of the box unless UseRefineCenter is set.
# RefineRadius = 0.1
# UseRefineCenter = true
# RefineCenterX = 0.5
# RefineCenterY = 0.5
# RefineCenterZ = 0.5

# Patches with at least this many particles are refined.
# RefineParticles = 1000

[Source "halo_0"]
# Either a file template (e.g. halo_0.{%d,0..3}.par) or GenerateN > 0.
Files = halo_0.par
# GenerateN = 10000
# GenerateScaleRadius = 0.02
# GenerateMass = 1
# GenerateSeed = 1

CenterX = 0.4
CenterY = 0.5
CenterZ = 0.5
BulkVX = 0.1

# One of [ None | SoftExponential | HardCutoff | CubicExponential ].
Profile = SoftExponential
Radius = 0.1
# Width defaults to 0.2 * Radius.
# Width = 0.02

# Marks the particle closest to CenterX, CenterY, CenterZ as this source's
# center.
Label = true

[SrcTerms]
# Modules = Deleptonization
# Modules = Accretion
# One of [ cpu | device ].
# Backend = cpu
# Lanes = 128
# Gamma = 1.6666667
# MinDens = 1e-10
# MinPres = 1e-10
# MinEint = 1e-10

[Deleptonization]
# Densities in g/cm^3.
# Rho1 = 3e7
# Rho2 = 2e13
# Ye1 = 0.5
# Ye2 = 0.278
# Yec = 0.035

[Accretion]
# Radius = 0.01
# DensThreshold = 100
# Index of the source which holds the sink. Sources are indexed in
# alphabetical order and the source must set Label = true.
# Source = 0

[Gas]
# Dens = 1
# Pres = 1
# VX = 0
# VY = 0
# VZ = 0
# Ye = 0.5

[Record]
# Interval = 1
# Steps = 0..100 - 50
# Dir = .
# Center = true
# Sink = true
# Bound = false
# BoundRadius = 0.1
# Eps = 1e-3
# G = 1
# Database = records.sqlite

[Generate]
# The generate mode writes the particles of every source with GenerateN set
# to <Dir>/<source name>.par.
# Dir = .
# ChunkSize = 65536`
