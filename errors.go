package gpso

import "errors"

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEvaluatorType is returned when the evaluator cannot score subsets.
	ErrEvaluatorType = errors.New("not a subset evaluator")
	// ErrEvaluation wraps any failure returned by a SubsetEvaluator.
	ErrEvaluation = errors.New("subset evaluation failed")
	// ErrNoAttributes is returned when the dataset has no attribute a subset
	// could select.
	ErrNoAttributes = errors.New("no selectable attributes")
)
