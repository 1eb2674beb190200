package validatesubscription

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"mangastream-workers/internal/access"
	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "validate-subscription"
)

type Handler struct {
	config     *Config
	store      *store.Store
	evaluator  *access.Evaluator
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, st *store.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      st,
		evaluator:  access.NewEvaluator(nil),
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
		return nil, apperrors.NewSubscriptionInvalidError("viewerId is required")
	}

	row, err := h.store.Subscription(ctx, input.ViewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewSubscriptionInvalidError("no subscription for viewer "+input.ViewerID).
				WithMetadata("viewerId", input.ViewerID)
		}
		return nil, apperrors.NewViewerLookupFailedError(err)
	}

	viewer := row.Viewer(true)
	if row.IsValid && row.ExpiresAt != "" && viewer.SubscriptionExpiresAt == nil {
		h.logger.Warn("unparseable subscription expiry, treating as expired", map[string]interface{}{
			"viewerId":  row.UserID,
			"expiresAt": row.ExpiresAt,
		})
	}

	if !viewer.SubscriptionTier.Known() {
		h.logger.Warn("unknown subscription tier, ranking as free", map[string]interface{}{
			"viewerId": row.UserID,
			"tier":     row.Tier,
		})
	}

	output := &Output{
		ViewerID:      row.UserID,
		IsActive:      viewer.HasActiveSubscription(h.evaluator.Now()),
		Tier:          row.Tier,
		EffectiveTier: string(h.evaluator.EffectiveTier(viewer)),
	}
	if viewer.SubscriptionExpiresAt != nil {
		output.ExpiresAt = viewer.SubscriptionExpiresAt.Format(time.RFC3339)
	}
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
