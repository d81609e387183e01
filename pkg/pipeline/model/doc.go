// Package model provides the data structures and methods for the pipeline package.
// It defines all the data structures used in the pipeline,
// including the pipeline itself, the steps in the pipeline, and the options for each step.
package model
