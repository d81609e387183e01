package model

// StepType identifies the role of a step in the pipeline graph.
type StepType string

const (
	RootStepType   StepType = "root"
	NormalStepType StepType = "step"
	SinkStepType   StepType = "sink"
)

// StepInfo describes a step independently of the type flowing through it.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
}

var (
	// StartStep is the virtual parent of every root step.
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	// EndStep is the virtual child of every sink.
	EndStep = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is a node of the pipeline. Output is closed once the step has nothing left to send.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}
