package pipeline

import (
	"context"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context //nolint:containedctx // steps read it when Run starts them
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
	steps     graph.Graph[string, string]
}

// New creates a new pipeline.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)

	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
		steps:     graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}

	for _, name := range []string{model.StartStep.Details.Name, model.EndStep.Details.Name} {
		err := pipe.steps.AddVertex(name)
		if err != nil {
			cancel()

			return nil, errors.Wrapf(err, "unable to add %s vertex", name)
		}
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// addLink registers the step in the step graph and links it to its parent.
func (p *Pipeline) addLink(parentName, name string) error {
	err := p.steps.AddVertex(name)
	if err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return errors.Wrapf(ErrDuplicateStep, "step %q", name)
		}

		return errors.Wrapf(err, "unable to add step %s", name)
	}

	err = p.steps.AddEdge(parentName, name)
	if err != nil {
		return errors.Wrapf(err, "unable to link %s to %s", parentName, name)
	}

	return nil
}

// Steps returns the names of all the steps, parents before children. The virtual
// start and end steps are not included.
func (p *Pipeline) Steps() ([]string, error) {
	order, err := graph.StableTopologicalSort(p.steps, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort steps")
	}

	res := make([]string, 0, len(order))

	for _, name := range order {
		if name == model.StartStep.Details.Name || name == model.EndStep.Details.Name {
			continue
		}

		res = append(res, name)
	}

	return res, nil
}

// waitForPipeline waits for results from all error channels.
// It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

// Run starts every step and waits for the pipeline to finish.
// The first error stops the remaining steps.
func (p *Pipeline) Run() error {
	defer p.cancel()

	for _, fn := range p.goFn {
		go fn(p.ctx)
	}

	err := waitForPipeline(p.errcList.list...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
