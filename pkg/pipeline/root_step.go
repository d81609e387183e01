package pipeline

import (
	"context"

	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

// AddRootStep adds a step without input. stepFn pushes elements to rootChan, which is
// closed once stepFn returns.
func AddRootStep[O any](pipe *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}

	err := prepareStep(pipe, model.StartStep, step, opts...)
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

		err := stepFn(ctx, step.Output)
		if err != nil {
			errC <- err
		}
	})

	return step, nil
}
