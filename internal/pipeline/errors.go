package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageDataFactory Stage = "adf"
	StageDatabricks  Stage = "databricks"
)

// Operation is the label used for retry logging and metrics.
func (s Stage) Operation() string {
	switch s {
	case StageDataFactory:
		return "adf.create_run"
	case StageDatabricks:
		return "databricks.create_job"
	default:
		return string(s)
	}
}

// Description is the human name used in alerts.
func (s Stage) Description() string {
	switch s {
	case StageDataFactory:
		return "Data Factory pipeline trigger"
	case StageDatabricks:
		return "Databricks notebook job"
	default:
		return string(s)
	}
}

// StageError reports the stage whose retries were exhausted. Err is the
// error of the last attempt, unchanged.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage.Description(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage named by a *StageError in err's chain.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
