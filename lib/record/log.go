package record

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/phil-mansfield/amrpar/lib/catio"
)

// Log is a flat text diagnostics file. The first call to Write adds a
// '#'-prefixed header naming every column, and every call appends one row:
//
//   #         Time          Step             x0             y0 ...
//    1.0000000e-01             3  5.0000000e-01  2.5000000e-01 ...
//
// Existing files are appended to, with a warning.
type Log struct {
	Path    string
	Columns []string
	// DB, if non-nil, mirrors every row.
	DB *Database

	headerDone bool
}

// NewLog creates a log which will be written to path. Nothing is written
// until the first call to Write.
func NewLog(path string, columns []string, db *Database) *Log {
	return &Log{Path: path, Columns: columns, DB: db}
}

// Write appends a row. It should only be called from one rank.
func (l *Log) Write(time float64, step int, row []float64) error {
	if len(row) != len(l.Columns) {
		panic(fmt.Sprintf("Internal error: %d values given for a row of "+
			"%s, which has %d columns.", len(row), l.Path, len(l.Columns)))
	}

	if !l.headerDone {
		if err := l.writeHeader(); err != nil {
			return err
		}
		l.headerDone = true
	}

	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fmt.Fprintf(f, "%14.7e%14d", time, step)
	for _, x := range row {
		fmt.Fprintf(f, " %14.7e", x)
	}
	fmt.Fprintln(f)
	if err = f.Close(); err != nil {
		return err
	}

	if l.DB != nil {
		return l.DB.Insert(l.Path, time, step, l.Columns, row)
	}
	return nil
}

func (l *Log) writeHeader() error {
	if _, err := os.Stat(l.Path); err == nil {
		log.Printf("WARNING: the file '%s' already exists. New records "+
			"will be appended to it.", l.Path)
	}

	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fmt.Fprintf(f, "#%13s%14s", "Time", "Step")
	for _, col := range l.Columns {
		fmt.Fprintf(f, " %14s", col)
	}
	fmt.Fprintln(f)
	return f.Close()
}

// ReadLog reads a log written by Log back into memory. cols maps each
// column name to its values, one per row.
func ReadLog(path string) (
	time []float64, step []int, cols map[string][]float64, err error,
) {
	rd, err := catio.TextFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	names := rd.Names()
	if len(names) < 2 || names[0] != "Time" || names[1] != "Step" {
		return nil, nil, nil, fmt.Errorf("'%s' does not have a record "+
			"log header.", path)
	}

	steps, err := rd.ReadInts([]int{1})
	if err != nil {
		return nil, nil, nil, err
	}
	idxs := make([]int, len(names)-1)
	idxs[0] = 0
	for i := 2; i < len(names); i++ {
		idxs[i-1] = i
	}
	flts, err := rd.ReadFloat64s(idxs)
	if err != nil {
		return nil, nil, nil, err
	}

	cols = map[string][]float64{}
	for i := 2; i < len(names); i++ {
		cols[names[i]] = flts[i-1]
	}
	return flts[0], steps[0], cols, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	log    TEXT,    -- path of the text log
	time   REAL,
	step   INTEGER,
	name   TEXT,
	value  REAL);
`

const insert = `INSERT INTO records VALUES (?, ?, ?, ?, ?);`

// Database is a SQLite mirror of every Log sharing it. Rows are stored in
// long form: one row per (log, step, column).
type Database struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// OpenDatabase opens, and if needed creates, the database in fname.
func OpenDatabase(fname string) (*Database, error) {
	db, err := sql.Open("sqlite3", "file:"+fname+"?_journal_mode=OFF")
	if err != nil {
		return nil, err
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Could not initialize the record database "+
			"'%s': %s", fname, err.Error())
	}
	stmt, err := db.Prepare(insert)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db, stmt}, nil
}

// Insert stores a single row of the log at path.
func (d *Database) Insert(
	path string, time float64, step int, columns []string, row []float64,
) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(d.stmt)
	for i := range row {
		if _, err = stmt.Exec(path, time, step, columns[i], row[i]); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query returns every value of a column in the log at path, ordered by step.
func (d *Database) Query(path, column string) (steps []int, vals []float64, err error) {
	rows, err := d.db.Query(`SELECT step, value FROM records
		WHERE log = ? AND name = ? ORDER BY step ASC;`, path, column)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var step int
		var val float64
		if err = rows.Scan(&step, &val); err != nil {
			return nil, nil, err
		}
		steps, vals = append(steps, step), append(vals, val)
	}
	return steps, vals, rows.Err()
}

// Close closes the database.
func (d *Database) Close() error {
	d.stmt.Close()
	return d.db.Close()
}
