package evaluateaccess

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"mangastream-workers/internal/access"
	"mangastream-workers/internal/common/auth"
	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "evaluate-access"
)

type Handler struct {
	config       *Config
	store        *store.Store
	introspector auth.Introspector
	evaluator    *access.Evaluator
	logger       logger.Logger
	errHandler   *apperrors.ErrorHandler
}

// NewHandler builds the handler. A nil introspector means no identity provider is configured,
// in which case a non-empty viewer id counts as authenticated.
func NewHandler(config *Config, st *store.Store, introspector auth.Introspector, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        st,
		introspector: introspector,
		evaluator:    access.NewEvaluator(nil),
		logger:       log,
		errHandler:   apperrors.NewErrorHandler(log),
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
	viewer, err := h.resolveViewer(ctx, input)
	if err != nil {
		return nil, err
	}

	var item *access.ContentItem
	if viewer.Authenticated {
		item, err = h.resolveContent(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	decision := h.evaluator.Evaluate(viewer, item)
	metrics.RecordAccessDecision(decision.Allowed, string(decision.ReasonCode), string(decision.RequiredTier))

	output := &Output{
		Allowed:      decision.Allowed,
		ReasonCode:   string(decision.ReasonCode),
		RequiredTier: string(decision.RequiredTier),
		ViewerTier:   string(decision.ViewerTier),
		ContentID:    input.ContentID,
	}
	if viewer.Authenticated {
		output.EffectiveTier = string(h.evaluator.EffectiveTier(viewer))
	}

	h.logger.Debug("access evaluated", map[string]interface{}{
		"viewerId":   viewer.ID,
		"contentId":  input.ContentID,
		"allowed":    decision.Allowed,
		"reasonCode": decision.ReasonCode,
	})
	return output, nil
}

func (h *Handler) resolveViewer(ctx context.Context, input *Input) (access.Viewer, error) {
	if input.Viewer != nil {
		v := access.ViewerFromMap(input.Viewer)
		if v.ID == "" {
			v.ID = input.ViewerID
		}
		return v, nil
	}

	viewerID, authenticated, err := h.authenticate(ctx, input)
	if err != nil {
		return access.Viewer{}, err
	}
	if !authenticated {
		return access.Viewer{ID: viewerID}, nil
	}

	viewer, err := h.store.Viewer(ctx, viewerID, true)
	if err != nil {
		return access.Viewer{}, apperrors.NewViewerLookupFailedError(err)
	}
	return viewer, nil
}

// authenticate returns the viewer id the request acts for and whether it is authenticated.
func (h *Handler) authenticate(ctx context.Context, input *Input) (string, bool, error) {
	if h.introspector == nil {
		return input.ViewerID, input.ViewerID != "", nil
	}
	if input.AccessToken == "" {
		return input.ViewerID, false, nil
	}

	info, err := h.introspector.Introspect(ctx, input.AccessToken)
	if err != nil {
		return "", false, err
	}
	if !info.Active {
		return input.ViewerID, false, nil
	}

	if input.ViewerID == "" {
		return info.Subject, info.Subject != "", nil
	}
	if info.Subject != "" && info.Subject != input.ViewerID {
		h.logger.Warn("access token subject does not match viewer", map[string]interface{}{
			"viewerId": input.ViewerID,
			"subject":  info.Subject,
		})
		return input.ViewerID, false, nil
	}
	return input.ViewerID, true, nil
}

func (h *Handler) resolveContent(ctx context.Context, input *Input) (*access.ContentItem, error) {
	// An empty snapshot resolves nothing; the store decides whether the title exists.
	if len(input.Content) > 0 {
		item := access.ContentFromMap(input.Content)
		if item.ID == "" {
			item.ID = input.ContentID
		}
		return &item, nil
	}
	if input.ContentID == "" {
		return nil, nil
	}

	item, err := h.store.ContentItem(ctx, input.ContentID)
	if err != nil {
		return nil, apperrors.NewContentLookupFailedError(err)
	}
	return item, nil
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
