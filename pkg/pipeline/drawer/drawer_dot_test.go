package drawer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/geo-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/geo-pipeline/pkg/pipeline/measure"
)

func TestDOTDrawer(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "graph.dot")
	drw := drawer.NewDOTDrawer(fileName)

	for _, step := range []string{"start", "fetch", "split", "end"} {
		require.NoError(t, drw.AddStep(step))
	}

	require.NoError(t, drw.AddLink("start", "fetch"))
	require.NoError(t, drw.AddLink("fetch", "split"))
	require.NoError(t, drw.AddLink("split", "end"))
	require.Error(t, drw.AddStep("fetch"))
	require.Error(t, drw.AddLink("fetch", "missing"))

	msr := measure.NewDefaultMeasure()
	msr.AddMetric("fetch", 1).AddTransportDuration("start", time.Millisecond)
	split := msr.AddMetric("split", 1)
	split.AddDuration(2 * time.Millisecond)
	split.AddTransportDuration("fetch", 5*time.Millisecond)

	require.NoError(t, drw.AddMeasure(msr))
	require.NoError(t, drw.SetTotalTime("end", time.Now().Add(-time.Second)))
	require.NoError(t, drw.Draw())

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)

	dot := string(content)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(dot), "strict digraph {"))
	assert.Contains(t, dot, `rankdir="LR"`)
	assert.Contains(t, dot, `"fetch" -> "split"`)
	assert.Contains(t, dot, `label="5ms"`)
	assert.Contains(t, dot, `color="#f00000"`, "slowest edge is red")
	assert.Contains(t, dot, `color="#0000f0"`, "fastest edge is blue")
	assert.Contains(t, dot, "label=<split")
}

func TestDOTDrawerEmptyMeasure(t *testing.T) {
	t.Parallel()

	drw := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "graph.dot"))
	require.NoError(t, drw.AddStep("start"))

	assert.NoError(t, drw.AddMeasure(measure.NewDefaultMeasure()))
}

func TestDOTDrawerUnknownStep(t *testing.T) {
	t.Parallel()

	drw := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "graph.dot"))

	assert.Error(t, drw.SetTotalTime("missing", time.Now()))
}

func TestDOTDrawerDrawError(t *testing.T) {
	t.Parallel()

	drw := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "missing", "graph.dot"))

	assert.Error(t, drw.Draw())
}
