package searchcatalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"mangastream-workers/internal/access"
	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/workers/catalog/search-catalog/queries"
)

const (
	TaskType = "search-catalog"
)

type Handler struct {
	config     *Config
	client     *elasticsearch.Client
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		client:     client,
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
	page, size := h.pagination(input)

	result, err := queries.Execute(ctx, h.client, queries.CatalogQuery{
		Index:    h.config.IndexName,
		Keywords: input.Query,
		Genre:    input.Genre,
		Status:   input.Status,
		Type:     input.Type,
		From:     (page - 1) * size,
		Size:     size,
	})
	if err != nil {
		var missing *queries.ErrIndexMissing
		switch {
		case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
			return nil, apperrors.NewSearchTimeoutError()
		case errors.As(err, &missing), errors.Is(err, queries.ErrMissingIndex):
			return nil, apperrors.NewIndexNotFoundError(h.config.IndexName)
		default:
			return nil, apperrors.NewSearchQueryFailedError(err)
		}
	}

	output := &Output{
		Results:   make([]Result, 0, len(result.Hits)),
		TotalHits: result.TotalHits,
		Page:      page,
		Size:      size,
		MaxScore:  result.MaxScore,
		Took:      result.Took,
	}
	for _, hit := range result.Hits {
		output.Results = append(output.Results, h.annotate(hit, input.ViewerTier))
	}
	return output, nil
}

// annotate attaches the required tier and, when the caller passed a viewer tier, whether the
// title is locked for that tier.
func (h *Handler) annotate(hit queries.Hit, viewerTier string) Result {
	item := access.ContentFromMap(hit.Source)
	required := item.RequiredTier()

	res := Result{
		ID:           hit.ID,
		Score:        hit.Score,
		RequiredTier: string(required),
		Document:     hit.Source,
	}
	if viewerTier != "" {
		locked := !access.Tier(viewerTier).Satisfies(required)
		res.Locked = &locked
	}
	return res
}

func (h *Handler) pagination(input *Input) (page, size int) {
	page = input.Page
	if page < 1 {
		page = 1
	}
	size = input.Size
	if size < 1 {
		size = h.config.DefaultSize
	}
	if size > h.config.MaxSize {
		size = h.config.MaxSize
	}
	return page, size
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
