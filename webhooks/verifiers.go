package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

type Verifier interface {
	Verify(ctx context.Context, req core.WebhookRequest) error
}

// FormHMACVerifier authenticates Twilio-style callbacks: the signature is an
// HMAC over the full callback URL concatenated with every posted form
// parameter, sorted lexicographically by key, each key immediately followed
// by its value. The digest is base64 encoded into the signature header.
type FormHMACVerifier struct {
	Header    string
	Secret    string
	Algorithm string // sha1 | sha256
}

func (v FormHMACVerifier) Verify(_ context.Context, req core.WebhookRequest) error {
	header := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}

	expected, err := SignFormPayload(secret, v.Algorithm, req.URL, req.Body)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

// SignFormPayload computes the form-callback signature for a callback URL and
// raw form-encoded body. Exposed so tests and simulators can produce valid
// signatures.
func SignFormPayload(secret string, algorithm string, callbackURL string, body []byte) (string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", fmt.Errorf("webhooks: parse form payload: %w", err)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(callbackURL)
	for _, key := range keys {
		for _, value := range values[key] {
			builder.WriteString(key)
			builder.WriteString(value)
		}
	}

	mac := hmac.New(hashConstructor(algorithm), []byte(secret))
	_, _ = mac.Write([]byte(builder.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func hashConstructor(algorithm string) func() hash.Hash {
	if strings.EqualFold(strings.TrimSpace(algorithm), "sha256") {
		return sha256.New
	}
	return sha1.New
}

// HeaderTokenVerifier compares a shared token carried in a header,
// constant-time.
type HeaderTokenVerifier struct {
	Header string
	Token  string
}

func (v HeaderTokenVerifier) Verify(_ context.Context, req core.WebhookRequest) error {
	expected := strings.TrimSpace(v.Token)
	if expected == "" {
		return fmt.Errorf("webhooks: verification token is required")
	}
	actual := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if actual == "" {
		return fmt.Errorf("webhooks: %s verification header is required", strings.TrimSpace(v.Header))
	}
	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return fmt.Errorf("webhooks: verification token mismatch")
	}
	return nil
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
