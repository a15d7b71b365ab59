package snapio

import (
	"fmt"
)

// Concat is a Reader which joins several readers end to end, e.g. the files
// of a source which was written in pieces. Every reader must have the same
// datasets with the same widths.
type Concat struct {
	rds    []Reader
	starts []int
	n      int
	tmp    []float64
}

var _ Reader = &Concat{}

// NewConcat joins rds. Concat takes ownership of rds and closes them when
// it is closed.
func NewConcat(rds ...Reader) (*Concat, error) {
	if len(rds) == 0 {
		return nil, fmt.Errorf("No readers were given to Concat.")
	}

	c := &Concat{rds: rds, starts: make([]int, len(rds)+1)}
	for i, rd := range rds {
		c.starts[i+1] = c.starts[i] + rd.Len()
		for _, ds := range Standard {
			w0, ok0 := rds[0].Width(ds.Name)
			w, ok := rd.Width(ds.Name)
			if ok0 != ok || w0 != w {
				return nil, fmt.Errorf("Reader %d has a different '%s' "+
					"dataset than reader 0.", i, ds.Name)
			}
		}
	}
	c.n = c.starts[len(rds)]

	return c, nil
}

// OpenAll opens every file in fnames and joins them.
func OpenAll(fnames []string) (Reader, error) {
	rds := make([]Reader, 0, len(fnames))
	for _, fname := range fnames {
		f, err := Open(fname)
		if err != nil {
			for _, rd := range rds {
				rd.Close()
			}
			return nil, err
		}
		rds = append(rds, f)
	}
	if len(rds) == 1 {
		return rds[0], nil
	}
	return NewConcat(rds...)
}

func (c *Concat) Len() int { return c.n }

func (c *Concat) Width(name string) (int, bool) { return c.rds[0].Width(name) }

func (c *Concat) ReadFloat64s(
	name string, offset, n, width int, buf []float64,
) ([]float64, error) {
	dsWidth, ok := c.Width(name)
	if !ok {
		return buf, fmt.Errorf("The joined source does not contain the "+
			"dataset '%s'.", name)
	}
	if err := checkSlab(name, offset, n, width, c.n, dsWidth); err != nil {
		return buf, err
	}

	buf = resizeFloat64s(buf, n*width)
	for i, rd := range c.rds {
		start, end := c.starts[i], c.starts[i+1]
		if start < offset {
			start = offset
		}
		if end > offset+n {
			end = offset + n
		}
		if end <= start {
			continue
		}

		var err error
		c.tmp, err = rd.ReadFloat64s(
			name, start-c.starts[i], end-start, width, c.tmp,
		)
		if err != nil {
			return buf, err
		}
		copy(buf[(start-offset)*width:(end-offset)*width], c.tmp)
	}

	return buf, nil
}

// Close closes every reader and returns the first error.
func (c *Concat) Close() error {
	var first error
	for _, rd := range c.rds {
		if err := rd.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
