/*package catio reads whitespace-separated text tables, such as the logs
written by lib/record. Columns can be addressed by index or by the names
given in the table's final header comment line.
*/
package catio

import (
	"bytes"
	"fmt"
	"io/ioutil"
)

// TextConfig contains information neccessary for parsing text tables.
type TextConfig struct {
	Separator   byte           // Character used to separated fields
	Comment     byte           // Character used to start comments.
	SkipLines   int            // Number of lines to skip at the start of file.
	ColumnNames map[string]int // Map from column names to indices.
}

// DefaultConfig is a TextConfig instance which reads space-separated tables
// with '#' comments and takes column names from the header.
var DefaultConfig = TextConfig{
	Separator:   ' ',
	Comment:     '#',
	SkipLines:   0,
	ColumnNames: map[string]int{},
}

// Reader allows the user to access the columns of a text table. columns must
// be either []int or []string.
type Reader interface {
	ReadInts(columns interface{}) ([][]int, error)
	ReadFloat64s(columns interface{}) ([][]float64, error)
	// Names returns the column names in the table's header, if any.
	Names() []string
	// Rows returns the number of data rows.
	Rows() int
}

// TextFile creates a Reader for a text table on disk.
func TextFile(fname string, config ...TextConfig) (Reader, error) {
	text, err := ioutil.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	rd, err := newTextReader(text, config...)
	if err != nil {
		return nil, fmt.Errorf("Could not parse '%s': %s", fname, err.Error())
	}
	return rd, nil
}

// Text creates a Reader for a block of text.
func Text(text []byte, config ...TextConfig) (Reader, error) {
	return newTextReader(text, config...)
}

type textReader struct {
	config TextConfig
	names  []string
	rows   [][][]byte
}

func newTextReader(text []byte, config ...TextConfig) (*textReader, error) {
	t := &textReader{config: DefaultConfig}
	if len(config) > 0 {
		t.config = config[0]
	}

	lines := bytes.Split(text, []byte{'\n'})
	if t.config.SkipLines > len(lines) {
		return nil, fmt.Errorf("Asked to skip %d lines, but there are "+
			"only %d.", t.config.SkipLines, len(lines))
	}
	lines = lines[t.config.SkipLines:]

	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] == t.config.Comment {
			if len(t.rows) == 0 {
				t.names = t.splitNames(line[1:])
			}
			continue
		}
		if c := bytes.IndexByte(line, t.config.Comment); c >= 0 {
			line = line[:c]
		}
		row := t.fields(line)
		if len(t.rows) > 0 && len(row) != len(t.rows[0]) {
			return nil, fmt.Errorf("Line %d has %d columns, but earlier "+
				"lines have %d.", i+1+t.config.SkipLines, len(row),
				len(t.rows[0]))
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func (t *textReader) fields(line []byte) [][]byte {
	if t.config.Separator == ' ' {
		return bytes.Fields(line)
	}
	tok := bytes.Split(line, []byte{t.config.Separator})
	for i := range tok {
		tok[i] = bytes.TrimSpace(tok[i])
	}
	return tok
}

func (t *textReader) splitNames(line []byte) []string {
	tok := t.fields(line)
	names := make([]string, len(tok))
	for i := range tok {
		names[i] = string(tok[i])
	}
	return names
}

func (t *textReader) Names() []string { return t.names }
func (t *textReader) Rows() int       { return len(t.rows) }

// columnIndices converts the generic columns variable into integer indices.
// If columns is []int, it returns them, if columns is []string, it looks up
// the corresponding ints in ColumnNames and then in the header.
func (t *textReader) columnIndices(columns interface{}) ([]int, error) {
	var idxs []int
	switch cols := columns.(type) {
	case []int:
		idxs = cols
	case []string:
		idxs = make([]int, len(cols))
		for i := range cols {
			idx, ok := t.config.ColumnNames[cols[i]]
			if !ok {
				idx, ok = t.headerIndex(cols[i])
			}
			if !ok {
				return nil, fmt.Errorf("No column named '%s'.", cols[i])
			}
			idxs[i] = idx
		}
	default:
		return nil, fmt.Errorf("Columns argument must be []int or []string.")
	}

	if len(t.rows) > 0 {
		for _, idx := range idxs {
			if idx < 0 || idx >= len(t.rows[0]) {
				return nil, fmt.Errorf("Column %d requested, but the "+
					"table only has %d columns.", idx, len(t.rows[0]))
			}
		}
	}
	return idxs, nil
}

func (t *textReader) headerIndex(name string) (int, bool) {
	for i := range t.names {
		if t.names[i] == name {
			return i, true
		}
	}
	return -1, false
}

// ReadInts reads the specified columns and interprets them as ints.
func (t *textReader) ReadInts(columns interface{}) ([][]int, error) {
	idxs, err := t.columnIndices(columns)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(idxs))
	for j := range out {
		out[j] = make([]int, len(t.rows))
	}
	for i, row := range t.rows {
		for j, idx := range idxs {
			x, err := atoi(row[idx])
			if err != nil {
				return nil, fmt.Errorf("Row %d, column %d: %s", i, idx,
					err.Error())
			}
			out[j][i] = x
		}
	}
	return out, nil
}

// ReadFloat64s reads the specified columns and interprets them as float64s.
func (t *textReader) ReadFloat64s(columns interface{}) ([][]float64, error) {
	idxs, err := t.columnIndices(columns)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(idxs))
	for j := range out {
		out[j] = make([]float64, len(t.rows))
	}
	for i, row := range t.rows {
		for j, idx := range idxs {
			x, err := atof(row[idx])
			if err != nil {
				return nil, fmt.Errorf("Row %d, column %d: %s", i, idx,
					err.Error())
			}
			out[j][i] = x
		}
	}
	return out, nil
}
