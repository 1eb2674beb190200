package publishepisodes

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "publish-episodes"
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
	if input.ContentID == "" {
		return nil, apperrors.NewEpisodePublishInvalidError("contentId is required")
	}

	pub, err := h.store.PublishEpisodes(ctx, input.ContentID, input.AvailableEpisodes)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apperrors.NewContentNotFoundError(input.ContentID)
		case errors.Is(err, store.ErrEpisodeCountOutOfRange):
			return nil, apperrors.NewEpisodePublishInvalidError(err.Error()).
				WithMetadata("contentId", input.ContentID)
		default:
			return nil, apperrors.NewEpisodePublishFailedError(err)
		}
	}

	unlocked := pub.NewlyUnlocked()
	if pub.Changed {
		metrics.EpisodesPublished.Add(float64(len(unlocked)))
		h.logger.Info("episodes published", map[string]interface{}{
			"contentId":         input.ContentID,
			"previousAvailable": pub.PreviousAvailable,
			"availableEpisodes": pub.AvailableEpisodes,
		})
	} else if input.AvailableEpisodes < pub.PreviousAvailable {
		h.logger.Warn("ignoring request to lower available episodes", map[string]interface{}{
			"contentId": input.ContentID,
			"requested": input.AvailableEpisodes,
			"current":   pub.PreviousAvailable,
		})
	}

	return &Output{
		ContentID:         input.ContentID,
		PreviousAvailable: pub.PreviousAvailable,
		AvailableEpisodes: pub.AvailableEpisodes,
		TotalEpisodes:     pub.TotalEpisodes,
		Changed:           pub.Changed,
		NewlyUnlocked:     unlocked,
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
