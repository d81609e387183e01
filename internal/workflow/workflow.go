// Package workflow chains the fetch, extract, split and trim stages of a dataset on top of the
// step pipeline. Every stage records a manifest of its outputs so that a later run skips the
// stages whose outputs are still present.
package workflow

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/internal/config"
	"github.com/askiada/geo-pipeline/internal/dataset"
	"github.com/askiada/geo-pipeline/internal/extract"
	"github.com/askiada/geo-pipeline/internal/fetch"
	"github.com/askiada/geo-pipeline/internal/logging"
	"github.com/askiada/geo-pipeline/internal/manifest"
	"github.com/askiada/geo-pipeline/internal/metrics"
	"github.com/askiada/geo-pipeline/internal/section"
	"github.com/askiada/geo-pipeline/internal/trim"
	"github.com/askiada/geo-pipeline/pkg/pipeline"
	"github.com/askiada/geo-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/geo-pipeline/pkg/pipeline/measure"
	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

// Stage names, in execution order.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageSplit   = "split"
	StageTrim    = "trim"
)

const (
	rootStepName = "datasets"
	sinkStepName = "report"
)

var ErrMissingInput = errors.New("missing stage input")

// Fetcher downloads the archive of a dataset to dest.
type Fetcher interface {
	Fetch(ctx context.Context, dataset, dest string) error
}

// Report is what a run produced for one dataset. Paths are absolute when the data directory is.
type Report struct {
	Dataset   string
	Archive   string
	Extracted []string
	Sections  []string
	Trimmed   []string
	Marker    string
	// Skipped lists the stages whose manifest was still valid.
	Skipped []string

	layout dataset.Layout
	// dirty is set once a stage ran, every later stage must run as well.
	dirty bool
}

// Workflow runs the stages for one or more datasets. Runs must not overlap.
type Workflow struct {
	cfg       *config.Config
	logger    *slog.Logger
	fetcher   Fetcher
	extractor *extract.Extractor
	splitter  *section.Splitter
	trimmer   *trim.Trimmer
	recorder  *metrics.Recorder
	runID     string
}

// Option configures a Workflow.
type Option func(w *Workflow)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(fetcher Fetcher) Option {
	return func(w *Workflow) {
		w.fetcher = fetcher
	}
}

// WithRecorder replaces the metrics recorder.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(w *Workflow) {
		w.recorder = recorder
	}
}

// New creates a workflow from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Workflow, error) {
	if cfg == nil {
		return nil, errors.Wrap(config.ErrInvalidConfig, "configuration must be set")
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	logger = logging.OrDiscard(logger)

	w := &Workflow{
		cfg:    cfg,
		logger: logger,
		fetcher: fetch.New(cfg.BaseURL,
			fetch.WithTimeout(cfg.HTTPTimeout),
			fetch.WithLogger(logger.With("stage", StageFetch)),
		),
		extractor: extract.New(extract.WithLogger(logger.With("stage", StageExtract))),
		splitter:  section.New(section.WithLogger(logger.With("stage", StageSplit))),
		trimmer:   trim.New(trim.WithLogger(logger.With("stage", StageTrim))),
		recorder:  metrics.NewRecorder(cfg.MetricsFile),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Plan returns the names of the pipeline steps, parents first.
func (w *Workflow) Plan() ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe, err := w.build(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	return pipe.Steps()
}

// Run processes every dataset, the configured one when none is given. Datasets go through the
// stages one after the other and the first error stops the run.
func (w *Workflow) Run(ctx context.Context, datasets ...string) ([]*Report, error) {
	if len(datasets) == 0 {
		datasets = []string{w.cfg.Dataset}
	}

	layouts := make([]dataset.Layout, 0, len(datasets))

	for _, id := range datasets {
		layout, err := dataset.New(w.cfg.DataDir, id)
		if err != nil {
			return nil, err
		}

		layouts = append(layouts, layout)
	}

	w.runID = uuid.NewString()

	var reports []*Report

	pipe, err := w.build(ctx, layouts, &reports, w.pipelineOptions()...)
	if err != nil {
		return nil, err
	}

	w.logger.Info("run started", "run_id", w.runID, "datasets", datasets, "force", w.cfg.Force)

	err = pipe.Run()
	if err != nil {
		return reports, errors.Wrap(err, "unable to run pipeline")
	}

	w.logger.Info("run completed", "run_id", w.runID)

	return reports, nil
}

func (w *Workflow) pipelineOptions() []model.PipelineOption {
	opts := []model.PipelineOption{w.recorder}

	if w.cfg.GraphFile != "" {
		msr := measure.NewDefaultMeasure()
		opts = append(opts,
			measure.PipelineMeasure(msr),
			drawer.PipelineDrawer(drawer.NewDOTDrawer(w.cfg.GraphFile), msr),
		)
	}

	return opts
}

// build wires datasets -> fetch -> extract -> split -> trim -> report.
func (w *Workflow) build(ctx context.Context, layouts []dataset.Layout, reports *[]*Report, opts ...model.PipelineOption) (*pipeline.Pipeline, error) {
	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pipeline")
	}

	root, err := pipeline.AddRootStep(pipe, rootStepName, func(ctx context.Context, out chan<- *Report) error {
		for _, layout := range layouts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- &Report{Dataset: layout.Dataset, layout: layout}:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to add %s step", rootStepName)
	}

	step := root

	for _, st := range w.stages() {
		step, err = pipeline.AddStepOneToOne(pipe, st.name, step, func(ctx context.Context, rep *Report) (*Report, error) {
			return w.runStage(ctx, st, rep)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add %s step", st.name)
		}
	}

	err = pipeline.AddSink(pipe, sinkStepName, step, func(_ context.Context, rep *Report) error {
		w.logger.Info("dataset ready", "dataset", rep.Dataset, "marker", rep.Marker, "skipped", rep.Skipped)

		if reports != nil {
			*reports = append(*reports, rep)
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to add %s step", sinkStepName)
	}

	return pipe, nil
}

// runStage runs one stage for a dataset unless its manifest shows it already completed.
func (w *Workflow) runStage(ctx context.Context, st stage, rep *Report) (*Report, error) {
	layout := rep.layout
	logger := w.logger.With("stage", st.name, "dataset", rep.Dataset)

	if input := st.input(layout); input != "" {
		_, err := os.Stat(input)
		if err != nil {
			return nil, errors.Wrapf(ErrMissingInput, "%s needs %s", st.name, input)
		}
	}

	if !w.cfg.Force && !rep.dirty {
		m, ok := manifest.Complete(layout.ManifestDir(), st.name, layout.Dir())
		if ok {
			logger.Info("stage already complete", "run_id", m.RunID, "outputs", len(m.Outputs))
			w.recorder.Skipped(st.name)

			outputs := make([]string, 0, len(m.Outputs))
			for _, output := range m.Outputs {
				outputs = append(outputs, layout.Abs(output))
			}

			rep.Skipped = append(rep.Skipped, st.name)
			st.apply(rep, outputs)

			return rep, nil
		}
	}

	outputs, err := st.run(ctx, layout)
	if err != nil {
		return nil, err
	}

	rel := make([]string, 0, len(outputs))
	for _, output := range outputs {
		rel = append(rel, layout.Rel(output))
	}

	err = manifest.New(st.name, rep.Dataset, w.runID, rel).Write(layout.ManifestDir())
	if err != nil {
		return nil, err
	}

	w.recorder.AddOutputs(st.name, len(outputs))
	logger.Info("stage completed", "outputs", len(outputs))

	rep.dirty = true
	st.apply(rep, outputs)

	return rep, nil
}
