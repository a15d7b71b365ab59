package exchange

import (
	"fmt"
	"math"
	"strings"
)

// Profile attenuates particle masses as a function of distance from their
// source's center. Profiles must leave particles at r = 0 untouched.
type Profile interface {
	// Attenuate returns the attenuated version of mass m at radius r.
	Attenuate(m, r float64) float64
	Name() string
}

// Type assertions
var (
	_ Profile = None{}
	_ Profile = SoftExponential{}
	_ Profile = HardCutoff{}
	_ Profile = CubicExponential{}
)

// None leaves masses unchanged.
type None struct{}

func (None) Attenuate(m, r float64) float64 { return m }
func (None) Name() string                   { return "None" }

// SoftExponential multiplies masses beyond R by exp(-(r - R)/Width).
type SoftExponential struct {
	R, Width float64
}

func (p SoftExponential) Attenuate(m, r float64) float64 {
	if r <= p.R {
		return m
	}
	return m * math.Exp(-(r-p.R)/p.Width)
}

func (SoftExponential) Name() string { return "SoftExponential" }

// HardCutoff sets masses beyond R to zero.
type HardCutoff struct {
	R float64
}

func (p HardCutoff) Attenuate(m, r float64) float64 {
	if r <= p.R {
		return m
	}
	return 0
}

func (HardCutoff) Name() string { return "HardCutoff" }

// CubicExponential multiplies masses beyond R by exp(-((r - R)/Width)^3).
type CubicExponential struct {
	R, Width float64
}

func (p CubicExponential) Attenuate(m, r float64) float64 {
	if r <= p.R {
		return m
	}
	x := (r - p.R) / p.Width
	return m * math.Exp(-x*x*x)
}

func (CubicExponential) Name() string { return "CubicExponential" }

// DefaultWidthFraction is the decay width of the exponential profiles in
// units of R when no width is given.
const DefaultWidthFraction = 0.2

// ParseProfile creates a profile from its name. Names are case-insensitive.
// If width is zero, DefaultWidthFraction * r is used.
func ParseProfile(name string, r, width float64) (Profile, error) {
	if width == 0 {
		width = DefaultWidthFraction * r
	}

	lower := strings.ToLower(name)
	switch lower {
	case "", "none":
		return None{}, nil
	}

	if r <= 0 {
		return nil, fmt.Errorf("The truncation profile '%s' needs a "+
			"positive radius, but TruncationRadius = %g.", name, r)
	}

	switch lower {
	case "hardcutoff":
		return HardCutoff{r}, nil
	case "softexponential", "cubicexponential":
		if width <= 0 {
			return nil, fmt.Errorf("The truncation profile '%s' needs a "+
				"positive width, but TruncationWidth = %g.", name, width)
		}
		if lower == "softexponential" {
			return SoftExponential{r, width}, nil
		}
		return CubicExponential{r, width}, nil
	}

	return nil, fmt.Errorf("Unrecognized truncation profile '%s'. The "+
		"valid profiles are None, SoftExponential, HardCutoff, and "+
		"CubicExponential.", name)
}
