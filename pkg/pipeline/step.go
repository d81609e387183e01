package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

func onStepOutput[I, O any](opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], iterationDuration, computationDuration time.Duration) error {
	for _, opt := range opts {
		err := opt.OnStepOutput(input.Details, output.Details, iterationDuration, computationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on step output function")
		}
	}

	return nil
}

func sequentialOneToOne[I, O any](ctx context.Context, goIdx int, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}

			endFn := time.Since(startFn)

			// we check the context again to make sure all go routines currently running
			// stop to add new elements to the pipeline
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
			case output.Output <- out:
				err = onStepOutput(opts, input, output, time.Since(start)-endFn, endFn)
				if err != nil {
					return errors.Wrapf(err, "go routine %d", goIdx)
				}
			}
		}
	}
}

func concurrentOneToOne[I, O any](ctx context.Context, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// starts many consumers concurrently
	// each consumer stops as soon as an error happens
	for goIdx := range output.Details.Concurrent {
		errGrp.Go(func() error {
			return sequentialOneToOne(dCtx, goIdx, opts, input, output, oneToOneFn)
		})
	}

	return errGrp.Wait() //nolint:wrapcheck // already wrapped by the consumers
}

func runOneToOne[I, O any](ctx context.Context, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	if output.Details.Concurrent <= 1 {
		output.Details.Concurrent = 1

		return sequentialOneToOne(ctx, 0, opts, input, output, oneToOneFn)
	}

	return concurrentOneToOne(ctx, opts, input, output, oneToOneFn)
}

func prepareStep[I, O any](pipe *Pipeline, input *model.Step[I], step *model.Step[O], opts ...StepOption[O]) error {
	for _, opt := range opts {
		opt(step)
	}

	err := pipe.addLink(input.Details.Name, step.Details.Name)
	if err != nil {
		return err
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(input.Details, step.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run before step function")
		}
	}

	return nil
}

// AddStepOneToOne adds a step that turns every input element into exactly one output element.
func AddStepOneToOne[I, O any](pipe *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if input.Details == nil {
		input.Details = &model.StepInfo{Type: model.RootStepType, Name: model.StartStep.Details.Name}
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.NormalStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}

	err := prepareStep(pipe, input, step, opts...)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := runOneToOne(ctx, pipe.opts, input, step, oneToOneFn)
		if err != nil {
			errC <- err
		}
	})

	return step, nil
}
