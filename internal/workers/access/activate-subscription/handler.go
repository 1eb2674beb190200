package activatesubscription

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"mangastream-workers/internal/access"
	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "activate-subscription"
)

type Handler struct {
	config     *Config
	store      *store.Store
	now        func() time.Time
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, st *store.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      st,
		now:        time.Now,
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
	if err := h.validate(input); err != nil {
		return nil, err
	}

	tier := access.Tier(input.Tier)
	activation, err := h.store.ActivateSubscription(ctx, input.ViewerID, tier,
		time.Duration(input.DurationDays)*24*time.Hour, h.now())
	if err != nil {
		return nil, apperrors.NewSubscriptionActivationFailedError(err).
			WithMetadata("viewerId", input.ViewerID)
	}

	h.logger.Info("subscription activated", map[string]interface{}{
		"viewerId":  input.ViewerID,
		"tier":      activation.Tier,
		"expiresAt": activation.ExpiresAt,
		"extended":  activation.Extended,
	})

	return &Output{
		ViewerID:     input.ViewerID,
		Tier:         activation.Tier,
		PreviousTier: activation.PreviousTier,
		ExpiresAt:    activation.ExpiresAt.Format(time.RFC3339),
		Extended:     activation.Extended,
	}, nil
}

// validate rejects free (nothing to activate) and unknown tiers.
func (h *Handler) validate(input *Input) error {
	if input.ViewerID == "" {
		return apperrors.NewSubscriptionInvalidError("viewerId is required")
	}
	paid := paidTiers()
	if !slices.Contains(paid, access.Tier(input.Tier)) {
		names := make([]string, len(paid))
		for i, t := range paid {
			names[i] = t.String()
		}
		return apperrors.NewSubscriptionInvalidError(
			fmt.Sprintf("tier %q cannot be activated, want one of %s", input.Tier, strings.Join(names, ", ")))
	}
	if input.DurationDays < 1 || input.DurationDays > h.config.MaxDurationDays {
		return apperrors.NewSubscriptionInvalidError(
			fmt.Sprintf("durationDays must be between 1 and %d, got %d", h.config.MaxDurationDays, input.DurationDays))
	}
	return nil
}

// paidTiers lists every tier above free in hierarchy order.
func paidTiers() []access.Tier {
	var out []access.Tier
	for _, t := range access.Tiers() {
		if t != access.TierFree {
			out = append(out, t)
		}
	}
	return out
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
