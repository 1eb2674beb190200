package recordpayment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"mangastream-workers/internal/access"
	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "record-payment"
)

type Handler struct {
	config     *Config
	ledger     *store.PaymentLedger
	newID      func() string
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, ledger *store.PaymentLedger, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		ledger:     ledger,
		newID:      func() string { return uuid.New().String() },
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
	payment, err := h.toPayment(input)
	if err != nil {
		return nil, err
	}

	res, err := h.ledger.Record(ctx, payment)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewContentNotFoundError(payment.ContentID)
		}
		return nil, apperrors.NewPaymentRecordFailedError(err).
			WithMetadata("paymentId", payment.ID)
	}

	if res.Duplicate {
		h.logger.Info("payment already recorded", map[string]interface{}{
			"paymentId": payment.ID,
			"contentId": payment.ContentID,
		})
	}
	if res.Applied {
		metrics.RecordDonation(payment.Currency, payment.Amount)
	}

	goalReached := res.DonationGoal > 0 && res.CurrentDonations >= res.DonationGoal
	return &Output{
		PaymentID:        payment.ID,
		Recorded:         !res.Duplicate,
		Duplicate:        res.Duplicate,
		CurrentDonations: res.CurrentDonations,
		DonationGoal:     res.DonationGoal,
		ProgressPercent:  access.DonationProgressPercent(res.CurrentDonations, res.DonationGoal),
		GoalReached:      goalReached,
		GoalJustReached:  goalReached && res.Applied && res.CurrentDonations-payment.Amount < res.DonationGoal,
	}, nil
}

func (h *Handler) toPayment(input *Input) (store.Payment, error) {
	if input.ContentID == "" {
		return store.Payment{}, apperrors.NewPaymentInvalidError("contentId is required")
	}
	if input.Amount <= 0 {
		return store.Payment{}, apperrors.NewPaymentInvalidError(fmt.Sprintf("amount must be positive, got %d", input.Amount))
	}
	status := store.PaymentStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if !status.Valid() {
		return store.Payment{}, apperrors.NewPaymentInvalidError(fmt.Sprintf("unknown payment status %q", input.Status))
	}

	id := input.PaymentID
	if id == "" {
		id = h.newID()
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = h.config.DefaultCurrency
	}

	return store.Payment{
		ID:        id,
		ViewerID:  input.ViewerID,
		ContentID: input.ContentID,
		Amount:    input.Amount,
		Currency:  currency,
		Status:    status,
		Provider:  input.Provider,
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
