package checkratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
)

const (
	TaskType = "check-rate-limit"
)

type Handler struct {
	config     *Config
	limiter    *Limiter
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		limiter:    NewLimiter(rdb),
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ViewerID == "" {
		return nil, apperrors.NewInputValidationFailedError("viewerId is required")
	}
	limit, ok := h.config.Limits[input.Action]
	if !ok || limit.Limit <= 0 {
		return nil, apperrors.NewInputValidationFailedError(fmt.Sprintf("no rate limit configured for action %q", input.Action))
	}

	window, err := h.limiter.Hit(ctx, Key(input.Action, input.ViewerID), limit.Limit,
		time.Duration(limit.Window)*time.Second)
	if err != nil {
		return nil, apperrors.NewRateLimitCheckFailedError(err)
	}

	output := &Output{
		Allowed: window.Count <= int64(limit.Limit),
		Action:  input.Action,
		Limit:   limit.Limit,
	}
	if output.Allowed {
		output.Remaining = limit.Limit - int(window.Count)
		return output, nil
	}

	output.RetryAfterSeconds = ceilSeconds(window.RetryAfter)
	metrics.RateLimitRejections.WithLabelValues(input.Action).Inc()
	h.logger.Info("rate limit exceeded", map[string]interface{}{
		"viewerId":   input.ViewerID,
		"action":     input.Action,
		"retryAfter": output.RetryAfterSeconds,
	})
	return output, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
