package dataset_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/geo-pipeline/internal/dataset"
)

func TestLayout(t *testing.T) {
	t.Parallel()

	layout, err := dataset.New("data", "GSE1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "GSE1"), layout.Dir())
	assert.Equal(t, filepath.Join("data", "GSE1", "archive"), layout.ArchivePath())
	assert.Equal(t, filepath.Join("data", "GSE1", "extracted"), layout.ExtractedDir())
	assert.Equal(t, filepath.Join("data", "GSE1", "extracted", "trim_probes_table_done.txt"), layout.MarkerPath())
	assert.Equal(t, filepath.Join("data", "GSE1", ".manifests"), layout.ManifestDir())
}

func TestLayoutRel(t *testing.T) {
	t.Parallel()

	layout, err := dataset.New("data", "GSE1")
	require.NoError(t, err)

	rel := layout.Rel(layout.MarkerPath())
	assert.Equal(t, filepath.Join("extracted", "trim_probes_table_done.txt"), rel)
	assert.Equal(t, layout.MarkerPath(), layout.Abs(rel))
	assert.Equal(t, filepath.Join("elsewhere", "x"), layout.Rel(filepath.Join("elsewhere", "x")))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		id      string
		wantErr bool
	}{
		"default":   {id: dataset.DefaultID},
		"empty":     {id: "", wantErr: true},
		"blank":     {id: "  ", wantErr: true},
		"dot":       {id: ".", wantErr: true},
		"dot dot":   {id: "..", wantErr: true},
		"slash":     {id: "a/b", wantErr: true},
		"backslash": {id: `a\b`, wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := dataset.Validate(tc.id)
			if tc.wantErr {
				assert.ErrorIs(t, err, dataset.ErrInvalidDataset)

				return
			}

			assert.NoError(t, err)
		})
	}
}
