// Package pipeline provides a pipeline for processing data.
//
// A pipeline is a graph of steps connected by channels: a root step produces elements, one-to-one steps
// transform them and a sink consumes them. Steps are registered with AddRootStep, AddStepOneToOne and AddSink,
// and nothing runs until Run is called.
//
// Every step is recorded in a directed acyclic graph, so the order of the steps can be inspected with
// Steps and rendered by the drawer package. A step consumes its input with a single goroutine unless
// StepConcurrency says otherwise.
//
// The pipeline stops on the first encountered error. The error is decorated with the name of the step
// that returned it and the remaining steps are cancelled through the context.
//
// Options implementing model.PipelineOption are notified when steps are added, when elements are produced
// and when the pipeline finishes; the measure and drawer packages are built on them.
package pipeline
