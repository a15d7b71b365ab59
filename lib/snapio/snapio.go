/*package snapio contains the particle sources that amrpar reads initial
conditions from. A source is a random-access collection of named datasets,
each holding Len() rows of a fixed width, which can be read one contiguous
range of rows at a time. Adding a new format requires writing a type which
implements the Reader interface.
*/
package snapio

import (
	"fmt"
)

// The datasets every particle source must provide.
const (
	Position = "particle_position"
	Velocity = "particle_velocity"
	Mass     = "particle_mass"
	Type     = "particle_type"
)

// Standard lists the required datasets and their widths.
var Standard = []struct {
	Name  string
	Width int
}{
	{Position, 3}, {Velocity, 3}, {Mass, 1}, {Type, 1},
}

// Reader is an abstraction over particle sources.
type Reader interface {
	// Len returns the number of rows in every dataset.
	Len() int
	// Width returns the number of values in each row of the named dataset.
	// ok is false if the dataset doesn't exist.
	Width(name string) (width int, ok bool)
	// ReadFloat64s reads rows [offset, offset + n) of the named dataset
	// into buf, which is resized as needed and returned. width must match
	// the width of the dataset. Rows are stored contiguously, so the i-th
	// value of row j is at buf[j*width + i].
	ReadFloat64s(
		name string, offset, n, width int, buf []float64,
	) ([]float64, error)
	// Close releases any resources held by the reader.
	Close() error
}

// CheckStandard returns an error if rd is missing one of the Standard
// datasets or if one of them has the wrong width.
func CheckStandard(rd Reader, sourceName string) error {
	for _, ds := range Standard {
		width, ok := rd.Width(ds.Name)
		if !ok {
			return fmt.Errorf("The particle source %s does not contain the "+
				"dataset '%s'.", sourceName, ds.Name)
		} else if width != ds.Width {
			return fmt.Errorf("The dataset '%s' in the particle source %s "+
				"has width %d, but %d was expected.", ds.Name, sourceName,
				width, ds.Width)
		}
	}
	return nil
}

// checkSlab validates a hyperslab request against a dataset of length nRow
// and width dsWidth.
func checkSlab(name string, offset, n, width, nRow, dsWidth int) error {
	if width != dsWidth {
		return fmt.Errorf("Dataset '%s' has width %d, but it was read with "+
			"width %d.", name, dsWidth, width)
	} else if offset < 0 || n < 0 || offset+n > nRow {
		return fmt.Errorf("Cannot read rows [%d, %d) of dataset '%s', which "+
			"only has %d rows.", offset, offset+n, name, nRow)
	}
	return nil
}

func resizeFloat64s(buf []float64, n int) []float64 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
