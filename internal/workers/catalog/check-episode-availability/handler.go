package checkepisodeavailability

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"mangastream-workers/internal/access"
	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "check-episode-availability"
)

type Handler struct {
	config     *Config
	store      *store.Store
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, st *store.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      st,
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
	item, err := h.store.ContentItem(ctx, input.ContentID)
	if err != nil {
		return nil, apperrors.NewContentLookupFailedError(err)
	}
	if item == nil {
		return nil, apperrors.NewContentNotFoundError(input.ContentID)
	}

	locked := access.LockedEpisodes(*item)
	if locked == nil {
		locked = []int{}
	}

	return &Output{
		ContentID:         item.ID,
		EpisodeNumber:     input.EpisodeNumber,
		Available:         access.IsEpisodeAvailable(*item, input.EpisodeNumber),
		AvailableEpisodes: item.AvailableEpisodes,
		TotalEpisodes:     item.TotalEpisodes,
		LockedEpisodes:    locked,
		LockedCount:       access.LockedEpisodeCount(*item),
		CurrentDonations:  item.CurrentDonations,
		DonationGoal:      item.DonationGoal,
		ProgressPercent:   access.DonationProgressPercent(item.CurrentDonations, item.DonationGoal),
	}, nil
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
