package sendnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/validation"
	"mangastream-workers/internal/store"
)

const (
	TaskType = "send-notification"
)

// EmailSender is satisfied by *aws.EmailSender.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender is satisfied by *aws.SMSSender.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	store      *store.Store
	email      EmailSender
	sms        SMSSender
	now        func() time.Time
	newID      func() string
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewHandler wires the delivery channels. A nil sender disables its channel regardless of config.
func NewHandler(config *Config, st *store.Store, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      st,
		email:      email,
		sms:        sms,
		now:        time.Now,
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
	tmpl, ok := templates[input.Type]
	if !ok {
		return nil, apperrors.NewInputValidationFailedError(fmt.Sprintf("unknown notification type %q", input.Type))
	}

	data := map[string]interface{}{}
	for k, v := range input.Metadata {
		data[k] = v
	}
	data["recipientId"] = input.RecipientID
	data["type"] = input.Type
	data["priority"] = input.Priority

	subject := tmpl.Subject
	if input.Subject != "" {
		subject = input.Subject
	}
	body := tmpl.Body
	if input.Message != "" {
		body = input.Message
	}
	subject = renderTemplate(subject, data)
	body = renderTemplate(body, data)

	email, phone, err := h.contact(ctx, input)
	if err != nil {
		return nil, apperrors.NewNotificationSendFailedError(input.Type, err)
	}

	now := h.now().UTC()
	notification := store.Notification{
		ID:        h.newID(),
		UserID:    input.RecipientID,
		Type:      input.Type,
		Subject:   subject,
		Body:      body,
		Status:    StatusStored,
		CreatedAt: now,
	}
	if err := h.store.InsertNotification(ctx, notification); err != nil {
		return nil, apperrors.NewNotificationSendFailedError(input.Type, err)
	}

	output := &Output{
		NotificationID: notification.ID,
		Status:         StatusStored,
		Channels:       []string{ChannelInApp},
		SentAt:         now.Format(time.RFC3339),
	}

	failed := false
	if h.config.EmailEnabled && h.email != nil && email != "" {
		if _, err := h.email.Send(ctx, email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":          err.Error(),
				"notificationId": notification.ID,
			})
			failed = true
		} else {
			output.Channels = append(output.Channels, ChannelEmail)
		}
	}

	if h.config.SMSEnabled && h.sms != nil && phone != "" && input.Priority == PriorityHigh {
		if _, err := h.sms.Send(ctx, phone, body); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":          err.Error(),
				"notificationId": notification.ID,
			})
			failed = true
		} else {
			output.Channels = append(output.Channels, ChannelSMS)
		}
	}

	switch {
	case failed:
		output.Status = StatusFailed
	case len(output.Channels) > 1:
		output.Status = StatusSent
	}

	if output.Status != StatusStored {
		if err := h.store.UpdateNotificationStatus(ctx, notification.ID, output.Status); err != nil {
			h.logger.Warn("failed to update notification status", map[string]interface{}{
				"error":          err.Error(),
				"notificationId": notification.ID,
			})
		}
	}

	return output, nil
}

// contact prefers addresses passed on the job and falls back to the users table.
// Malformed addresses are dropped rather than sent.
func (h *Handler) contact(ctx context.Context, input *Input) (email, phone string, err error) {
	email, phone = input.Email, input.Phone
	if email == "" || phone == "" {
		storedEmail, storedPhone, err := h.store.Contact(ctx, input.RecipientID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.logger.Warn("recipient not found", map[string]interface{}{
				"recipientId": input.RecipientID,
			})
		case err != nil:
			return "", "", err
		default:
			if email == "" {
				email = storedEmail
			}
			if phone == "" {
				phone = storedPhone
			}
		}
	}

	if email != "" && !validation.ValidateEmail(email) {
		h.logger.Warn("dropping malformed email", map[string]interface{}{"recipientId": input.RecipientID})
		email = ""
	}
	if phone != "" && !validation.ValidatePhone(phone) {
		h.logger.Warn("dropping malformed phone number", map[string]interface{}{"recipientId": input.RecipientID})
		phone = ""
	}
	return email, phone, nil
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
