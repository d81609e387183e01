// Package table reads and writes tab-separated tables whose first row is the header.
//
// Cells are kept as read: no type inference, no normalisation of numbers or missing values.
package table

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
)

const separator = '\t'

var ErrNoHeader = errors.New("no header row")

// Table is an ordered list of named columns and the rows below them.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Read parses tab-separated data. Blank lines are skipped and every row must have as many
// cells as the header.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = separator
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}

		return nil, errors.Wrap(err, "unable to read header")
	}

	tbl := &Table{Columns: header}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, errors.Wrap(err, "unable to read row")
		}

		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl, nil
}

// ReadFile reads the table stored at path.
func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	tbl, err := Read(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", path)
	}

	return tbl, nil
}

// Write writes the header and the rows, one line each, without any index column.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = separator

	err := writer.Write(t.Columns)
	if err != nil {
		return errors.Wrap(err, "unable to write header")
	}

	for _, row := range t.Rows {
		err := writer.Write(row)
		if err != nil {
			return errors.Wrap(err, "unable to write row")
		}
	}

	writer.Flush()

	return errors.Wrap(writer.Error(), "unable to flush rows")
}

// WriteFile writes the table to path, replacing any existing file.
func (t *Table) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}

	err = t.Write(file)
	if err != nil {
		file.Close()

		return errors.Wrapf(err, "unable to write %s", path)
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}

// Index returns the position of the column, or -1.
func (t *Table) Index(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}

	return -1
}

// Drop returns a copy of the table without the named columns. Names that are not columns
// of the table are ignored.
func (t *Table) Drop(names ...string) *Table {
	dropped := make(map[string]struct{}, len(names))
	for _, name := range names {
		dropped[name] = struct{}{}
	}

	keep := make([]int, 0, len(t.Columns))
	for i, col := range t.Columns {
		if _, ok := dropped[col]; !ok {
			keep = append(keep, i)
		}
	}

	res := &Table{
		Columns: pick(t.Columns, keep),
		Rows:    make([][]string, len(t.Rows)),
	}

	for i, row := range t.Rows {
		res.Rows[i] = pick(row, keep)
	}

	return res
}

func pick(cells []string, idx []int) []string {
	res := make([]string, len(idx))
	for i, j := range idx {
		res[i] = cells[j]
	}

	return res
}
