package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, input *model.Step[I], step *model.Step[I]) error {
	err := pipe.addLink(input.Details.Name, step.Details.Name)
	if err != nil {
		return err
	}

	err = pipe.steps.AddEdge(step.Details.Name, model.EndStep.Details.Name)
	if err != nil {
		return errors.Wrapf(err, "unable to link %s to the end step", step.Details.Name)
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareSink(input.Details, step.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run before sink function")
		}
	}

	return nil
}

func runSink[I any](ctx context.Context, pipe *Pipeline, input *model.Step[I], step *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	for {
		startInputChan := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // decorated with the step name by mergeErrors
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			endInputChan := time.Since(startInputChan)
			startFn := time.Now()

			err := sinkFn(ctx, in)
			if err != nil {
				return err
			}

			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(input.Details, step.Details, endInputChan, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on sink output function")
				}
			}
		}
	}
}

// AddSink adds the last step of a branch. sinkFn is called for every element of input.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}

	if input == nil {
		return ErrInputMustBeSet
	}

	if input.Details == nil {
		input.Details = &model.StepInfo{Type: model.RootStepType, Name: model.StartStep.Details.Name}
	}

	step := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.SinkStepType,
			Name:       name,
			Concurrent: 1,
		},
	}

	err := prepareSink(pipe, input, step)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer close(errC)

		err := runSink(ctx, pipe, input, step, sinkFn)
		if err != nil {
			errC <- err

			return
		}

		for _, opt := range pipe.opts {
			err := opt.AfterSink(step.Details, time.Since(pipe.startTime))
			if err != nil {
				errC <- errors.Wrap(err, "unable to run after sink function")

				return
			}
		}
	})

	return nil
}
