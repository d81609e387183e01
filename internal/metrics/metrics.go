// Package metrics exposes the stage metrics of a run through a Prometheus registry.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/geo-pipeline/pkg/pipeline/model"
)

const namespace = "geopipe"

// Recorder collects stage durations and output counts. It is a pipeline option: step durations
// are observed as elements leave each step.
type Recorder struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	outputs       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	textfile      string
}

// NewRecorder creates a recorder with its own registry. When textfile is not empty the metrics
// are written to it once the pipeline finishes.
func NewRecorder(textfile string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent running a stage for one dataset",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"stage"},
		),
		outputs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_outputs_total",
				Help:      "Number of files produced by a stage",
			},
			[]string{"stage"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_skipped_total",
				Help:      "Number of times a stage was skipped because its manifest was complete",
			},
			[]string{"stage"},
		),
		textfile: textfile,
	}

	r.registry.MustRegister(r.stageDuration, r.outputs, r.skipped)

	return r
}

// Registry returns the registry holding the recorder metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// AddOutputs counts the files produced by stage.
func (r *Recorder) AddOutputs(stage string, count int) {
	r.outputs.WithLabelValues(stage).Add(float64(count))
}

// Skipped counts a stage skipped for a dataset.
func (r *Recorder) Skipped(stage string) {
	r.skipped.WithLabelValues(stage).Inc()
}

func (r *Recorder) New() error {
	return nil
}

func (r *Recorder) PrepareStep(_, step *model.StepInfo) error {
	if step.Type == model.NormalStepType {
		r.outputs.WithLabelValues(step.Name)
		r.skipped.WithLabelValues(step.Name)
	}

	return nil
}

func (r *Recorder) OnStepOutput(_, step *model.StepInfo, _, computationDuration time.Duration) error {
	if step.Type == model.NormalStepType {
		r.stageDuration.WithLabelValues(step.Name).Observe(computationDuration.Seconds())
	}

	return nil
}

func (r *Recorder) PrepareSink(_, _ *model.StepInfo) error {
	return nil
}

func (r *Recorder) OnSinkOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (r *Recorder) AfterSink(_ *model.StepInfo, _ time.Duration) error {
	return nil
}

// Finish writes the metrics to the textfile, if any.
func (r *Recorder) Finish() error {
	if r.textfile == "" {
		return nil
	}

	err := prometheus.WriteToTextfile(r.textfile, r.registry)
	if err != nil {
		return errors.Wrapf(err, "unable to write metrics to %s", r.textfile)
	}

	return nil
}

var _ model.PipelineOption = (*Recorder)(nil)
