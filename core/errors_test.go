package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestMessagingErrorMapperSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category goerrors.Category
		textCode string
		status   int
	}{
		{
			name:     "tenant not found",
			err:      fmt.Errorf("%w: t-1", ErrTenantNotFound),
			category: goerrors.CategoryNotFound,
			textCode: MessagingErrorTenantNotFound,
			status:   http.StatusNotFound,
		},
		{
			name:     "channel not configured",
			err:      fmt.Errorf("%w: tenant t-1 channel sms", ErrChannelNotConfigured),
			category: goerrors.CategoryNotFound,
			textCode: MessagingErrorChannelNotConfigured,
			status:   http.StatusNotFound,
		},
		{
			name:     "invalid credentials",
			err:      fmt.Errorf("%w: blob", ErrInvalidCredentials),
			category: goerrors.CategoryAuth,
			textCode: MessagingErrorInvalidCredentials,
			status:   http.StatusUnauthorized,
		},
		{
			name:     "carrier unsupported",
			err:      fmt.Errorf("%w: ses over sms", ErrCarrierUnsupported),
			category: goerrors.CategoryOperation,
			textCode: MessagingErrorCarrierUnsupported,
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "mapping not found",
			err:      fmt.Errorf("%w: CM1", ErrMappingNotFound),
			category: goerrors.CategoryNotFound,
			textCode: MessagingErrorMappingNotFound,
			status:   http.StatusNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := messagingErrorMapper(tc.err)
			if mapped == nil {
				t.Fatal("expected mapped error")
			}
			if mapped.Category != tc.category {
				t.Fatalf("category = %s, want %s", mapped.Category, tc.category)
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("text code = %s, want %s", mapped.TextCode, tc.textCode)
			}
			if mapped.Code != tc.status {
				t.Fatalf("http code = %d, want %d", mapped.Code, tc.status)
			}
		})
	}
}

func TestMessagingErrorMapperPreservesRichErrors(t *testing.T) {
	source := goerrors.New("carrier rejected request", goerrors.CategoryExternal).
		WithTextCode(MessagingErrorCarrierTransport)
	mapped := messagingErrorMapper(source)
	if mapped.TextCode != MessagingErrorCarrierTransport {
		t.Fatalf("text code = %s", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadGateway {
		t.Fatalf("expected envelope to backfill 502, got %d", mapped.Code)
	}
}

func TestMessagingErrorMapperMessageFallbacks(t *testing.T) {
	mapped := messagingErrorMapper(errors.New("webhooks: signature verification failed"))
	if mapped.TextCode != MessagingErrorWebhookAuth {
		t.Fatalf("expected webhook auth code, got %s", mapped.TextCode)
	}

	mapped = messagingErrorMapper(errors.New("core: tenant id is required"))
	if mapped.TextCode != MessagingErrorBadInput {
		t.Fatalf("expected bad input code, got %s", mapped.TextCode)
	}
}

func TestMessagingErrorMapperNil(t *testing.T) {
	if mapped := messagingErrorMapper(nil); mapped != nil {
		t.Fatalf("expected nil, got %v", mapped)
	}
}
