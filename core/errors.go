package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	MessagingErrorBadInput             = "MSG_BAD_INPUT"
	MessagingErrorTenantNotFound       = "MSG_TENANT_NOT_FOUND"
	MessagingErrorChannelNotConfigured = "MSG_CHANNEL_NOT_CONFIGURED"
	MessagingErrorInvalidCredentials   = "MSG_INVALID_CREDENTIALS"
	MessagingErrorCarrierUnsupported   = "MSG_CARRIER_UNSUPPORTED"
	MessagingErrorCarrierTransport     = "MSG_CARRIER_TRANSPORT"
	MessagingErrorCarrierThrottled     = "MSG_CARRIER_THROTTLED"
	MessagingErrorWebhookAuth          = "MSG_WEBHOOK_AUTH"
	MessagingErrorWebhookParse         = "MSG_WEBHOOK_PARSE"
	MessagingErrorMappingNotFound      = "MSG_MAPPING_NOT_FOUND"
	MessagingErrorInternal             = "MSG_INTERNAL_ERROR"
)

func messagingErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureMessagingErrorEnvelope(richErr)
	}

	switch {
	case goerrors.Is(err, ErrTenantNotFound):
		return newMessagingError(err.Error(), goerrors.CategoryNotFound, MessagingErrorTenantNotFound)
	case goerrors.Is(err, ErrChannelNotConfigured):
		return newMessagingError(err.Error(), goerrors.CategoryNotFound, MessagingErrorChannelNotConfigured)
	case goerrors.Is(err, ErrInvalidCredentials):
		return newMessagingError(err.Error(), goerrors.CategoryAuth, MessagingErrorInvalidCredentials)
	case goerrors.Is(err, ErrCarrierUnsupported):
		return newMessagingError(err.Error(), goerrors.CategoryOperation, MessagingErrorCarrierUnsupported)
	case goerrors.Is(err, ErrMappingNotFound):
		return newMessagingError(err.Error(), goerrors.CategoryNotFound, MessagingErrorMappingNotFound)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newMessagingError(err.Error(), goerrors.CategoryAuth, MessagingErrorWebhookAuth)
	case strings.Contains(msg, "webhook"):
		return newMessagingError(err.Error(), goerrors.CategoryBadInput, MessagingErrorWebhookParse)
	case strings.Contains(msg, "carrier"), strings.Contains(msg, "transport"):
		return newMessagingError(err.Error(), goerrors.CategoryExternal, MessagingErrorCarrierTransport)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newMessagingError(err.Error(), goerrors.CategoryBadInput, MessagingErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureMessagingErrorEnvelope(mapped)
}

func newMessagingError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureMessagingErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureMessagingErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = messagingHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultMessagingTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultMessagingTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return MessagingErrorBadInput
	case goerrors.CategoryNotFound:
		return MessagingErrorChannelNotConfigured
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return MessagingErrorInvalidCredentials
	case goerrors.CategoryOperation:
		return MessagingErrorCarrierUnsupported
	case goerrors.CategoryExternal:
		return MessagingErrorCarrierTransport
	case goerrors.CategoryRateLimit:
		return MessagingErrorCarrierThrottled
	default:
		return MessagingErrorInternal
	}
}

func messagingHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
