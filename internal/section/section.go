// Package section splits text files made of bracket-labelled blocks of tab-separated rows into
// one table per block.
//
//	[Probes]
//	ID	Definition	Value
//	p1	foo	10
//	[Samples]
//	ID	Value
//	s1	20
package section

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/internal/table"
)

const headerPrefix = "["

// Sections maps section labels to their table. A label seen twice keeps the last table and its
// first position.
type Sections struct {
	labels []string
	tables map[string]*table.Table
}

func newSections() *Sections {
	return &Sections{tables: make(map[string]*table.Table)}
}

func (s *Sections) set(label string, tbl *table.Table) {
	if _, ok := s.tables[label]; !ok {
		s.labels = append(s.labels, label)
	}

	s.tables[label] = tbl
}

// Labels returns the labels in the order they first appeared.
func (s *Sections) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Get returns the table of the section.
func (s *Sections) Get(label string) (*table.Table, bool) {
	tbl, ok := s.tables[label]

	return tbl, ok
}

// Len returns the number of distinct labels.
func (s *Sections) Len() int {
	return len(s.labels)
}

func label(line string) string {
	return strings.Trim(strings.TrimRight(line, "\r\n"), "[]")
}

// Parse reads r line by line. A line starting with '[' opens a section named after its content;
// the lines that follow, up to the next header or the end of input, are parsed as a table.
// Lines before the first header are ignored.
func Parse(r io.Reader) (*Sections, error) {
	sections := newSections()
	reader := bufio.NewReader(r)

	var (
		current string
		active  bool
		buf     strings.Builder
	)

	flush := func() error {
		if !active {
			return nil
		}

		tbl, err := table.Read(strings.NewReader(buf.String()))
		if err != nil {
			return errors.Wrapf(err, "unable to parse section %q", current)
		}

		sections.set(current, tbl)
		buf.Reset()

		return nil
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "unable to read line")
		}

		if line != "" {
			switch {
			case strings.HasPrefix(line, headerPrefix):
				flushErr := flush()
				if flushErr != nil {
					return nil, flushErr
				}

				current, active = label(line), true
			case active:
				buf.WriteString(line)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	err := flush()
	if err != nil {
		return nil, err
	}

	return sections, nil
}
