// Package dataset derives every path a pipeline run reads or writes from the data directory and
// the dataset identifier.
package dataset

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultID is the GEO series processed when no identifier is given.
const DefaultID = "GSE68849"

const (
	archiveName   = "archive"
	extractedName = "extracted"
	manifestsName = ".manifests"
	markerName    = "trim_probes_table_done.txt"
)

var ErrInvalidDataset = errors.New("invalid dataset identifier")

// Layout is the on-disk layout of one dataset.
type Layout struct {
	DataDir string
	Dataset string
}

// New validates id and returns its layout under dataDir.
func New(dataDir, id string) (Layout, error) {
	err := Validate(id)
	if err != nil {
		return Layout{}, err
	}

	return Layout{DataDir: dataDir, Dataset: id}, nil
}

// Validate rejects identifiers that would not map to a single directory below the data directory.
func Validate(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.Wrap(ErrInvalidDataset, "empty identifier")
	case id == "." || id == "..":
		return errors.Wrapf(ErrInvalidDataset, "%q", id)
	case strings.ContainsAny(id, `/\`):
		return errors.Wrapf(ErrInvalidDataset, "%q contains a path separator", id)
	}

	return nil
}

// Dir is the root directory of the dataset.
func (l Layout) Dir() string {
	return filepath.Join(l.DataDir, l.Dataset)
}

// ArchivePath is where the downloaded archive is stored.
func (l Layout) ArchivePath() string {
	return filepath.Join(l.Dir(), archiveName)
}

// ExtractedDir is the extraction root.
func (l Layout) ExtractedDir() string {
	return filepath.Join(l.Dir(), extractedName)
}

// MarkerPath is the completion marker written by the trim stage.
func (l Layout) MarkerPath() string {
	return filepath.Join(l.ExtractedDir(), markerName)
}

// ManifestDir holds one manifest per completed stage.
func (l Layout) ManifestDir() string {
	return filepath.Join(l.Dir(), manifestsName)
}

// Rel returns path relative to Dir, or path itself when it is not below Dir.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Dir(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return rel
}

// Abs is the inverse of Rel.
func (l Layout) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(l.Dir(), rel)
}
