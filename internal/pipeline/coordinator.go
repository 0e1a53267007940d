package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/itsmrshow/conduit/internal/logging"
	"github.com/itsmrshow/conduit/internal/notify"
	"github.com/itsmrshow/conduit/internal/retry"
	"github.com/itsmrshow/conduit/internal/trigger"
)

// DataFactory starts Data Factory pipeline runs.
type DataFactory interface {
	CreateRun(ctx context.Context, ref trigger.PipelineRef) (trigger.RunHandle, error)
}

// Databricks creates Databricks notebook jobs.
type Databricks interface {
	CreateJob(ctx context.Context, name string, tasks []trigger.NotebookTask) (trigger.JobHandle, error)
}

// Alerter dispatches the terminal outcome of a run.
type Alerter interface {
	Dispatch(ctx context.Context, outcome notify.Outcome) notify.Report
}

// Job describes the two stages of one pipeline run.
type Job struct {
	Pipeline trigger.PipelineRef
	JobName  string
	Tasks    []trigger.NotebookTask
}

// Result holds the handles of a successful run.
type Result struct {
	RunID         string
	DataFactory   trigger.RunHandle
	DatabricksJob trigger.JobHandle
	Duration      time.Duration
}

// Coordinator runs the Data Factory stage then the Databricks stage, each
// under the retry executor, and alerts once on the terminal outcome.
type Coordinator struct {
	dataFactory DataFactory
	databricks  Databricks
	alerter     Alerter
	executor    *retry.Executor
	job         Job
	logger      *logging.Logger

	newRunID     func() string
	observeStage func(stage Stage, d time.Duration)
	observeRun   func(success bool)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRunID fixes the run id generator, mostly for tests.
func WithRunID(fn func() string) Option {
	return func(c *Coordinator) { c.newRunID = fn }
}

// WithStageHook registers a callback with each stage's duration.
func WithStageHook(fn func(stage Stage, d time.Duration)) Option {
	return func(c *Coordinator) { c.observeStage = fn }
}

// WithRunHook registers a callback invoked once per finished run.
func WithRunHook(fn func(success bool)) Option {
	return func(c *Coordinator) { c.observeRun = fn }
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(dataFactory DataFactory, databricks Databricks, alerter Alerter, executor *retry.Executor, job Job, logger *logging.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Coordinator{
		dataFactory: dataFactory,
		databricks:  databricks,
		alerter:     alerter,
		executor:    executor,
		job:         job,
		logger:      logger.WithComponent("pipeline"),
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes both stages. A stage that exhausts its retries stops the run,
// a failure alert is dispatched and the error is returned as a *StageError.
// The Databricks stage is never attempted after a Data Factory failure.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: c.newRunID()}
	logger := c.logger.WithRun(result.RunID)
	start := time.Now()

	logger.Info().
		Str("event", "pipeline_execution_started").
		Str("pipeline", c.job.Pipeline.Pipeline).
		Msg("Starting pipeline execution")

	adfRun, err := runStage(ctx, c, StageDataFactory, func(ctx context.Context) (trigger.RunHandle, error) {
		logger.Info().
			Str("event", "triggering_adf_pipeline").
			Str("pipeline_name", c.job.Pipeline.Pipeline).
			Msg("Triggering Data Factory pipeline")
		return c.dataFactory.CreateRun(ctx, c.job.Pipeline)
	})
	if err != nil {
		return result, c.fail(ctx, logger, result, StageDataFactory, err)
	}
	result.DataFactory = adfRun
	logger.Info().
		Str("event", "adf_pipeline_triggered").
		Str("adf_run_id", adfRun.RunID).
		Msg("Data Factory pipeline triggered")

	job, err := runStage(ctx, c, StageDatabricks, func(ctx context.Context) (trigger.JobHandle, error) {
		logger.Info().
			Str("event", "running_databricks_notebook").
			Str("job_name", c.job.JobName).
			Int("tasks", len(c.job.Tasks)).
			Msg("Creating Databricks job")
		return c.databricks.CreateJob(ctx, c.job.JobName, c.job.Tasks)
	})
	if err != nil {
		return result, c.fail(ctx, logger, result, StageDatabricks, err)
	}
	result.DatabricksJob = job
	result.Duration = time.Since(start)
	logger.Info().
		Str("event", "databricks_job_created").
		Int64("databricks_job_id", job.JobID).
		Msg("Databricks job created")

	logger.Info().
		Str("event", "pipeline_execution_complete").
		Str("adf_run_id", adfRun.RunID).
		Int64("databricks_job_id", job.JobID).
		Dur("duration", result.Duration).
		Msg("Pipeline execution complete")

	outcome := notify.Success("Pipeline Execution Successful",
		fmt.Sprintf("ADF Run ID: %s\nDatabricks Job ID: %d", adfRun.RunID, job.JobID))
	outcome.RunID = result.RunID
	c.alert(ctx, outcome)
	if c.observeRun != nil {
		c.observeRun(true)
	}
	return result, nil
}

// alert dispatches outcome even when ctx is already canceled or past its
// deadline; the dispatcher's per-channel timeout still bounds each send.
func (c *Coordinator) alert(ctx context.Context, outcome notify.Outcome) {
	c.alerter.Dispatch(context.WithoutCancel(ctx), outcome)
}

func runStage[T any](ctx context.Context, c *Coordinator, stage Stage, op func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := retry.Do(ctx, c.executor, stage.Operation(), op)
	if c.observeStage != nil {
		c.observeStage(stage, time.Since(start))
	}
	return v, err
}

func (c *Coordinator) fail(ctx context.Context, logger *logging.Logger, result Result, stage Stage, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}

	logger.Error().
		Err(err).
		Str("event", "pipeline_execution_failed").
		Str("stage", string(stage)).
		Msg("Pipeline execution failed")

	outcome := notify.Failure("Pipeline Execution Failed", err)
	outcome.Detail = fmt.Sprintf("Stage: %s", stage.Description())
	outcome.RunID = result.RunID
	c.alert(ctx, outcome)
	if c.observeRun != nil {
		c.observeRun(false)
	}
	return stageErr
}
