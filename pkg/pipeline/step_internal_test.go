package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

var concurrencyCases = map[string]struct {
	concurrent int
}{
	"sequential":     {concurrent: 1},
	"sequential v2":  {concurrent: 0},
	"concurrent 2":   {concurrent: 2},
	"concurrent 100": {concurrent: 100},
}

type countingOption struct {
	mu      sync.Mutex
	outputs map[string]int
}

func (c *countingOption) New() error                                    { return nil }
func (c *countingOption) PrepareStep(_, _ *model.StepInfo) error         { return nil }
func (c *countingOption) PrepareSink(_, _ *model.StepInfo) error         { return nil }
func (c *countingOption) AfterSink(*model.StepInfo, time.Duration) error { return nil }
func (c *countingOption) Finish() error                                  { return nil }

func (c *countingOption) OnStepOutput(_, step *model.StepInfo, _, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.outputs == nil {
		c.outputs = map[string]int{}
	}

	c.outputs[step.Name]++

	return nil
}

func (c *countingOption) OnSinkOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func TestOneToOne(t *testing.T) {
	t.Parallel()

	for name, tc := range concurrencyCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			opt := &countingOption{}
			input := &model.Step[int]{Output: createInputChan(t, 10), Details: &model.StepInfo{Name: "input"}}
			got := make(chan []int, 1)
			output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Name: "double", Concurrent: tc.concurrent}}

			go func() {
				got <- processOutputChan(t, output.Output)
			}()

			go func() {
				defer close(output.Output)
				err := runOneToOne(ctx, []model.PipelineOption{opt}, input, output, func(_ context.Context, i int) (int, error) {
					return i * 2, nil
				})
				assert.NoError(t, err)
			}()

			assert.ElementsMatch(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}, <-got)
			assert.Equal(t, 10, opt.outputs["double"])
			assert.GreaterOrEqual(t, output.Details.Concurrent, 1)
		})
	}
}

func TestOneToOneCancelInput(t *testing.T) {
	t.Parallel()

	for name, tc := range concurrencyCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			input := &model.Step[int]{Output: createInputChanWithCancel(t, 10, 5, cancel), Details: &model.StepInfo{Name: "input"}}
			got := make(chan []int, 1)
			errC := make(chan error, 1)
			output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Name: "copy", Concurrent: tc.concurrent}}

			go func() {
				got <- processOutputChan(t, output.Output)
			}()

			go func() {
				defer close(output.Output)
				errC <- runOneToOne(ctx, nil, input, output, func(_ context.Context, i int) (int, error) {
					return i, nil
				})
			}()

			assert.NotContains(t, <-got, 9)
			require.ErrorIs(t, <-errC, context.Canceled)
		})
	}
}

func TestOneToOneError(t *testing.T) {
	t.Parallel()

	for name, tc := range concurrencyCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			input := &model.Step[int]{Output: createInputChan(t, 10), Details: &model.StepInfo{Name: "input"}}
			got := make(chan []int, 1)
			errC := make(chan error, 1)
			output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Name: "copy", Concurrent: tc.concurrent}}

			go func() {
				got <- processOutputChan(t, output.Output)
			}()

			go func() {
				defer close(output.Output)
				errC <- runOneToOne(ctx, nil, input, output, func(_ context.Context, i int) (int, error) {
					if i == 5 {
						return 0, assert.AnError
					}

					return i, nil
				})
			}()

			assert.NotContains(t, <-got, 5)
			require.ErrorIs(t, <-errC, assert.AnError)
		})
	}
}
