// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSubscriptionInvalid          ErrorCode = "SUBSCRIPTION_INVALID"
	ErrCodeSubscriptionActivationFailed ErrorCode = "SUBSCRIPTION_ACTIVATION_FAILED"
	ErrCodeViewerLookupFailed           ErrorCode = "VIEWER_LOOKUP_FAILED"
	ErrCodeTokenIntrospectionFailed     ErrorCode = "TOKEN_INTROSPECTION_FAILED"

	ErrCodeContentLookupFailed   ErrorCode = "CONTENT_LOOKUP_FAILED"
	ErrCodeContentNotFound       ErrorCode = "CONTENT_NOT_FOUND"
	ErrCodeEpisodePublishInvalid ErrorCode = "EPISODE_PUBLISH_INVALID"
	ErrCodeEpisodePublishFailed  ErrorCode = "EPISODE_PUBLISH_FAILED"

	ErrCodePaymentInvalid      ErrorCode = "PAYMENT_INVALID"
	ErrCodePaymentRecordFailed ErrorCode = "PAYMENT_RECORD_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRateLimitCheckFailed   ErrorCode = "RATE_LIMIT_CHECK_FAILED"

	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeParseError            ErrorCode = "PARSE_ERROR"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any, to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail / throw variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewSubscriptionInvalidError(details string) *StandardError {
	return newError(ErrCodeSubscriptionInvalid, "Invalid or not found subscription", details, false, nil)
}

func NewSubscriptionActivationFailedError(err error) *StandardError {
	return newError(ErrCodeSubscriptionActivationFailed, "Subscription could not be activated", err.Error(), true, err)
}

func NewViewerLookupFailedError(err error) *StandardError {
	return newError(ErrCodeViewerLookupFailed, "Viewer lookup failed", err.Error(), true, err)
}

func NewTokenIntrospectionFailedError(err error) *StandardError {
	return newError(ErrCodeTokenIntrospectionFailed, "Identity provider unreachable", err.Error(), true, err)
}

func NewContentLookupFailedError(err error) *StandardError {
	return newError(ErrCodeContentLookupFailed, "Content lookup failed", err.Error(), true, err)
}

func NewContentNotFoundError(contentID string) *StandardError {
	return newError(ErrCodeContentNotFound, "Content not found", fmt.Sprintf("contentId: %s", contentID), false, nil)
}

func NewEpisodePublishInvalidError(details string) *StandardError {
	return newError(ErrCodeEpisodePublishInvalid, "Episode publication rejected", details, false, nil)
}

func NewEpisodePublishFailedError(err error) *StandardError {
	return newError(ErrCodeEpisodePublishFailed, "Episode publication failed", err.Error(), true, err)
}

func NewPaymentInvalidError(details string) *StandardError {
	return newError(ErrCodePaymentInvalid, "Payment rejected", details, false, nil)
}

func NewPaymentRecordFailedError(err error) *StandardError {
	return newError(ErrCodePaymentRecordFailed, "Payment could not be recorded", err.Error(), true, err)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Catalog search failed", err.Error(), true, err)
}

func NewSearchTimeoutError() *StandardError {
	return newError(ErrCodeSearchTimeout, "Catalog search timeout", "search exceeded the worker timeout", true, nil)
}

func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Search index not found", fmt.Sprintf("indexName: %s", indexName), false, nil)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true, err)
}

func NewRateLimitCheckFailedError(err error) *StandardError {
	return newError(ErrCodeRateLimitCheckFailed, "Rate limit check failed", err.Error(), true, err)
}

func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job variables failed validation", details, false, nil)
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Job variables could not be parsed", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeViewerLookupFailed,
		ErrCodeContentLookupFailed,
		ErrCodeSubscriptionActivationFailed,
		ErrCodeEpisodePublishFailed,
		ErrCodePaymentRecordFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeRateLimitCheckFailed:
		return 3

	case ErrCodeSearchTimeout,
		ErrCodeTokenIntrospectionFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// Normalize returns err as a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SUBSCRIPTION") || strings.Contains(codeStr, "VIEWER") || strings.Contains(codeStr, "TOKEN"):
		return "ACCESS"
	case strings.Contains(codeStr, "CONTENT") || strings.Contains(codeStr, "EPISODE"):
		return "CATALOG"
	case strings.Contains(codeStr, "PAYMENT"):
		return "PAYMENT"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "RATE_LIMIT"):
		return "COMMUNITY"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
