package pipeline

import "github.com/askiada/geo-pipeline/pkg/pipeline/model"

// StepOption configures a step when it is added to the pipeline.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many goroutines consume the input of the step.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}
