// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the subset of logger.Logger the error handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler turns a worker error into a job failure with retries or a thrown BPMN error.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolution is what HandleJobError will do with a failed job.
type Resolution struct {
	BPMN    *BPMNError
	Retries int
	Throw   bool
}

// Resolve decides between failing with retries and throwing, without touching the broker.
func Resolve(err error, jobRetries int32) Resolution {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries := bpmnErr.Retries
	if retries > 0 && jobRetries > 0 {
		if int(jobRetries) < retries {
			retries = int(jobRetries)
		}
		return Resolution{BPMN: bpmnErr, Retries: retries}
	}
	return Resolution{BPMN: bpmnErr, Throw: true}
}

// HandleJobError logs the error and reports it to the broker.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	res := Resolve(err, job.Retries)
	stdErr := Normalize(err)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        res.BPMN.Code,
		"message":          res.BPMN.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          res.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})

	if res.Throw {
		h.throwBPMNError(ctx, client, job, res.BPMN)
		return
	}
	h.failJobWithRetries(ctx, client, job, res.BPMN, res.Retries)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			if _, err := withVars.Send(ctx); err != nil {
				h.logSendFailure("fail job", job, err)
			}
			return
		}
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logSendFailure("fail job", job, err)
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			if _, err := withVars.Send(ctx); err != nil {
				h.logSendFailure("throw error", job, err)
			}
			return
		}
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logSendFailure("throw error", job, err)
	}
}

func (h *ErrorHandler) logSendFailure(op string, job entities.Job, err error) {
	h.logger.Error("failed to "+op, map[string]interface{}{
		"jobKey": job.Key,
		"error":  err.Error(),
	})
}
