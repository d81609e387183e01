package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/geo-pipeline/pkg/pipeline"
	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

func addCounter(t *testing.T, pipe *pipeline.Pipeline, name string, total int) *model.Step[int] {
	t.Helper()

	step, err := pipeline.AddRootStep(pipe, name, func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	})
	require.NoError(t, err)

	return step
}

func collect(t *testing.T, pipe *pipeline.Pipeline, input *model.Step[int]) *[]int {
	t.Helper()

	got := []int{}

	err := pipeline.AddSink(pipe, "sink", input, func(_ context.Context, i int) error {
		got = append(got, i)

		return nil
	})
	require.NoError(t, err)

	return &got
}
