// Package trim removes annotation columns from the probe tables of an extraction tree.
package trim

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/internal/logging"
	"github.com/askiada/geo-pipeline/internal/table"
)

const (
	// MarkerContent is written to the completion marker.
	MarkerContent = "TrimProbesTable completed"
	// MarkerName is the name of the completion marker, written at the root of the tree.
	MarkerName = "trim_probes_table_done.txt"

	probesMarker  = "probes"
	tableSuffix   = ".tsv"
	trimmedSuffix = "_Trimmed.tsv"
)

// DefaultColumns are the columns removed from probe tables.
var DefaultColumns = []string{
	"Definition",
	"Ontology_Component",
	"Ontology_Process",
	"Ontology_Function",
	"Synonyms",
	"Obsolete_Probe_Id",
	"Probe_Sequence",
}

// Result describes what TrimTree produced.
type Result struct {
	Marker string
	Files  []string
}

// Trimmer drops a fixed set of columns from probe tables.
type Trimmer struct {
	columns []string
	logger  *slog.Logger
}

// Option configures a Trimmer.
type Option func(t *Trimmer)

// WithColumns replaces DefaultColumns.
func WithColumns(columns ...string) Option {
	return func(t *Trimmer) {
		t.columns = columns
	}
}

// WithLogger sets the logger of the trimmer.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trimmer) {
		t.logger = logging.OrDiscard(logger)
	}
}

// New creates a Trimmer.
func New(opts ...Option) *Trimmer {
	t := &Trimmer{
		columns: DefaultColumns,
		logger:  logging.Discard(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// IsProbeTable reports whether name is a probe table that has not been trimmed yet.
func IsProbeTable(name string) bool {
	return strings.Contains(strings.ToLower(name), probesMarker) &&
		strings.HasSuffix(name, tableSuffix) &&
		!strings.HasSuffix(name, trimmedSuffix)
}

// TrimmedName is the name of the trimmed copy of a table.
func TrimmedName(name string) string {
	return name + trimmedSuffix
}

// TrimFile writes a copy of the table at path without the trimmer columns and returns its path.
// Columns missing from the table are ignored.
func (t *Trimmer) TrimFile(path string) (string, error) {
	tbl, err := table.ReadFile(path)
	if err != nil {
		return "", err
	}

	out := filepath.Join(filepath.Dir(path), TrimmedName(filepath.Base(path)))

	err = tbl.Drop(t.columns...).WriteFile(out)
	if err != nil {
		return "", err
	}

	return out, nil
}

func findProbeTables(root string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() && IsProbeTable(d.Name()) {
			found = append(found, path)
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to walk %s", root)
	}

	return found, nil
}

// TrimTree trims every probe table below root, then writes the completion marker at the root.
func (t *Trimmer) TrimTree(ctx context.Context, root string) (*Result, error) {
	tables, err := findProbeTables(root)
	if err != nil {
		return nil, err
	}

	res := &Result{Marker: filepath.Join(root, MarkerName)}

	for _, path := range tables {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "trim interrupted")
		}

		out, err := t.TrimFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to trim %s", path)
		}

		res.Files = append(res.Files, out)
	}

	err = os.WriteFile(res.Marker, []byte(MarkerContent), 0o644) //nolint:gosec // marker is public
	if err != nil {
		return nil, errors.Wrapf(err, "unable to write marker %s", res.Marker)
	}

	t.logger.Info("probe tables trimmed", "root", root, "files", len(res.Files))

	return res, nil
}
