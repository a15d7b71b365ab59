package snapio

import (
	"fmt"
)

// Memory is a Reader backed by in-memory arrays. It is used by tests and by
// sources that are generated instead of read.
type Memory struct {
	n      int
	data   map[string][]float64
	widths map[string]int
}

var _ Reader = &Memory{}

// NewMemory creates an empty source with n rows per dataset.
func NewMemory(n int) *Memory {
	return &Memory{n, map[string][]float64{}, map[string]int{}}
}

// Set adds (or replaces) a dataset. len(x) must be Len()*width. x is not
// copied.
func (m *Memory) Set(name string, width int, x []float64) error {
	if width <= 0 {
		return fmt.Errorf("Dataset '%s' given non-positive width %d.",
			name, width)
	} else if len(x) != m.n*width {
		return fmt.Errorf("Dataset '%s' has %d values, but %d rows of "+
			"width %d were expected.", name, len(x), m.n, width)
	}
	m.data[name], m.widths[name] = x, width
	return nil
}

func (m *Memory) Len() int { return m.n }

func (m *Memory) Width(name string) (int, bool) {
	w, ok := m.widths[name]
	return w, ok
}

func (m *Memory) ReadFloat64s(
	name string, offset, n, width int, buf []float64,
) ([]float64, error) {
	x, ok := m.data[name]
	if !ok {
		return buf, fmt.Errorf("Memory source does not contain the "+
			"dataset '%s'.", name)
	}
	err := checkSlab(name, offset, n, width, m.n, m.widths[name])
	if err != nil {
		return buf, err
	}

	buf = resizeFloat64s(buf, n*width)
	copy(buf, x[offset*width:(offset+n)*width])
	return buf, nil
}

func (m *Memory) Close() error { return nil }
