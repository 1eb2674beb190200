// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mangastream-workers/internal/common/config"
	"mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
	"mangastream-workers/internal/common/observability"
	"mangastream-workers/internal/common/validation"
)

// JobHandlerFunc is the signature every worker's Handle method satisfies.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

// Dependencies are the cross-cutting services wrapped around every handler.
type Dependencies struct {
	Validator     *validation.Validator
	Observability *observability.Observability
	Logger        logger.Logger
}

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeThrown    = "bpmn_error"
	OutcomeNone      = "none"
)

// outcomeClient records which terminal command the handler issued.
type outcomeClient struct {
	worker.JobClient
	outcome string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = OutcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = OutcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = OutcomeThrown
	return c.JobClient.NewThrowErrorCommand()
}

// StartWorker opens a job worker for taskType with validation and metrics around handler.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandlerFunc, deps Dependencies) worker.JobWorker {
	if !wcfg.Enabled {
		deps.Logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, handler, deps))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	deps.Logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}

// Instrument validates job variables against the registry, then runs handler and records the outcome.
func Instrument(taskType string, handler JobHandlerFunc, deps Dependencies) JobHandlerFunc {
	log := deps.Logger.WithFields(map[string]interface{}{"taskType": taskType})
	errHandler := errors.NewErrorHandler(log)

	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		ctx, span := deps.Observability.StartJob(context.Background(), taskType, job.GetKey())
		defer span.End()

		tracked := &outcomeClient{JobClient: client, outcome: OutcomeNone}

		if err := deps.precheck(taskType, job); err != nil {
			errHandler.HandleJobError(ctx, tracked, job, err)
		} else {
			handler(tracked, job)
		}

		span.SetAttributes(attribute.String("outcome", tracked.outcome))
		if tracked.outcome != OutcomeCompleted {
			span.SetStatus(codes.Error, tracked.outcome)
		}

		duration := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(duration.Seconds())
		if tracked.outcome == OutcomeCompleted {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		} else {
			metrics.WorkerJobsFailed.WithLabelValues(taskType, tracked.outcome).Inc()
		}
		deps.Observability.RecordJob(ctx, taskType, tracked.outcome, duration)
	}
}

// precheck returns an INPUT_VALIDATION_FAILED or PARSE_ERROR when the job cannot be handled.
func (d Dependencies) precheck(taskType string, job entities.Job) error {
	if d.Validator == nil {
		return nil
	}

	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return errors.NewParseError(err)
	}

	result, err := d.Validator.ValidateJob(taskType, vars)
	if err != nil {
		return errors.NewInputValidationFailedError(err.Error())
	}
	if !result.Valid {
		return errors.NewInputValidationFailedError(result.Summary())
	}
	return nil
}
