package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WebhookErrorBadInput       = "WEBHOOK_BAD_INPUT"
	WebhookErrorValidation     = "WEBHOOK_VALIDATION_FAILED"
	WebhookErrorNotFound       = "WEBHOOK_NOT_FOUND"
	WebhookErrorOrgRequired    = "WEBHOOK_ORG_CONTEXT_REQUIRED"
	WebhookErrorDeliveryFailed = "WEBHOOK_DELIVERY_FAILED"
	WebhookErrorStorageFailure = "WEBHOOK_STORAGE_FAILURE"
	WebhookErrorInternal       = "WEBHOOK_INTERNAL_ERROR"
)

func webhookErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrSubscriptionNotFound), errors.Is(err, ErrDeliveryNotFound):
		return newWebhookError(err.Error(), goerrors.CategoryNotFound, WebhookErrorNotFound)
	case errors.Is(err, ErrInvalidEventType), errors.Is(err, ErrInvalidTargetURL):
		return newWebhookError(err.Error(), goerrors.CategoryValidation, WebhookErrorValidation)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newWebhookError(err.Error(), goerrors.CategoryNotFound, WebhookErrorNotFound)
	case strings.Contains(msg, "organization"):
		return newWebhookError(err.Error(), goerrors.CategoryAuth, WebhookErrorOrgRequired)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"), strings.Contains(msg, "dial"), strings.Contains(msg, "tls"):
		return newWebhookError(err.Error(), goerrors.CategoryExternal, WebhookErrorDeliveryFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unknown event"):
		return newWebhookError(err.Error(), goerrors.CategoryBadInput, WebhookErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWebhookErrorEnvelope(mapped)
}

func newWebhookError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureWebhookErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func newFieldValidationError(field string, message string) error {
	return goerrors.NewValidation("core: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(WebhookErrorValidation).
		WithSeverity(goerrors.SeverityError)
}

// notFoundError shapes tenant misses. Not-found is used in preference to an
// explicit forbidden so callers cannot confirm that another tenant's
// resource exists.
func notFoundError(message string) error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(WebhookErrorNotFound)
}

func storageError(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(WebhookErrorStorageFailure)
}

func ensureWebhookErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = webhookHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWebhookTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWebhookTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryValidation:
		return WebhookErrorValidation
	case goerrors.CategoryBadInput:
		return WebhookErrorBadInput
	case goerrors.CategoryNotFound:
		return WebhookErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return WebhookErrorOrgRequired
	case goerrors.CategoryExternal:
		return WebhookErrorDeliveryFailed
	default:
		return WebhookErrorInternal
	}
}

func webhookHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
