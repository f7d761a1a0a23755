package transport

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
)

func transportError(message string, category goerrors.Category, code int) error {
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
}

func transportWrapError(source error, category goerrors.Category, message string, code int) error {
	if source == nil {
		return transportError(message, category, code)
	}
	return goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.MessagingErrorBadInput
	case goerrors.CategoryExternal:
		return core.MessagingErrorCarrierTransport
	default:
		return core.MessagingErrorInternal
	}
}
