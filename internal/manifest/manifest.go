// Package manifest records what a stage produced so that a later run can tell a completed stage
// from one that failed halfway.
package manifest

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const extension = ".json"

var ErrMissingOutput = errors.New("missing output")

// Manifest lists the outputs of one stage of one dataset. Outputs are relative to the dataset
// directory.
type Manifest struct {
	Stage     string    `json:"stage"`
	Dataset   string    `json:"dataset"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Outputs   []string  `json:"outputs"`
}

// New creates a manifest stamped with the current time.
func New(stage, dataset, runID string, outputs []string) *Manifest {
	if outputs == nil {
		outputs = []string{}
	}

	return &Manifest{
		Stage:     stage,
		Dataset:   dataset,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Outputs:   outputs,
	}
}

// Path is the location of the manifest of stage in dir.
func Path(dir, stage string) string {
	return filepath.Join(dir, stage+extension)
}

// Write stores the manifest in dir, replacing the previous one.
func (m *Manifest) Write(dir string) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dir)
	}

	content, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s manifest", m.Stage)
	}

	path := Path(dir, m.Stage)
	tmp := path + ".tmp"

	err = os.WriteFile(tmp, content, 0o644) //nolint:gosec // manifests are public
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", tmp)
	}

	return errors.Wrapf(os.Rename(tmp, path), "unable to move %s", tmp)
}

// Load reads the manifest of stage from dir.
func Load(dir, stage string) (*Manifest, error) {
	path := Path(dir, stage)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	m := &Manifest{}

	err = json.Unmarshal(content, m)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}

	return m, nil
}

// Verify checks that every output still exists below base and reports all the missing ones.
func (m *Manifest) Verify(base string) error {
	var result *multierror.Error

	for _, output := range m.Outputs {
		path := output
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, output)
		}

		_, err := os.Stat(path)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(ErrMissingOutput, "%s: %v", output, err))
		}
	}

	return result.ErrorOrNil()
}

// Complete returns the manifest of stage when it exists and all its outputs are present below
// base. Otherwise the stage must run again.
func Complete(dir, stage, base string) (*Manifest, bool) {
	m, err := Load(dir, stage)
	if err != nil {
		return nil, false
	}

	if m.Verify(base) != nil {
		return nil, false
	}

	return m, true
}
