package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	SecretPayloadFormatLegacyToken = "legacy_token"
	SecretPayloadFormatJSONV1      = "carrier_secret_json"
	SecretPayloadVersionV1         = 1
)

// CarrierSecret is the decrypted shape of a credential blob. Which fields are
// set depends on the carrier: Twilio rows carry AccountSID/AuthToken, SES rows
// carry the AWS key pair and region, Demo rows carry nothing.
type CarrierSecret struct {
	AccountSID      string
	AuthToken       string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Metadata        map[string]any
}

type SecretCodec interface {
	Format() string
	Version() int
	Encode(secret CarrierSecret) ([]byte, error)
	Decode(payload []byte) (CarrierSecret, error)
}

type JSONSecretCodec struct{}

func (JSONSecretCodec) Format() string {
	return SecretPayloadFormatJSONV1
}

func (JSONSecretCodec) Version() int {
	return SecretPayloadVersionV1
}

type jsonSecretPayload struct {
	AccountSID      string         `json:"account_sid,omitempty"`
	AuthToken       string         `json:"auth_token,omitempty"`
	AccessKeyID     string         `json:"access_key_id,omitempty"`
	SecretAccessKey string         `json:"secret_access_key,omitempty"`
	Region          string         `json:"region,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

func (JSONSecretCodec) Encode(secret CarrierSecret) ([]byte, error) {
	payload := jsonSecretPayload{
		AccountSID:      strings.TrimSpace(secret.AccountSID),
		AuthToken:       strings.TrimSpace(secret.AuthToken),
		AccessKeyID:     strings.TrimSpace(secret.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(secret.SecretAccessKey),
		Region:          strings.TrimSpace(secret.Region),
		Metadata:        copyAnyMap(secret.Metadata),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode carrier secret: %w", err)
	}
	return encoded, nil
}

func (JSONSecretCodec) Decode(payload []byte) (CarrierSecret, error) {
	if len(payload) == 0 {
		return CarrierSecret{}, fmt.Errorf("core: carrier secret payload is empty")
	}
	decoded := jsonSecretPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return CarrierSecret{}, fmt.Errorf("core: decode carrier secret: %w", err)
	}
	return CarrierSecret{
		AccountSID:      strings.TrimSpace(decoded.AccountSID),
		AuthToken:       strings.TrimSpace(decoded.AuthToken),
		AccessKeyID:     strings.TrimSpace(decoded.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(decoded.SecretAccessKey),
		Region:          strings.TrimSpace(decoded.Region),
		Metadata:        copyAnyMap(decoded.Metadata),
	}, nil
}

// LegacyTokenSecretCodec reads rows written before the structured payload:
// the whole blob is a single auth token.
type LegacyTokenSecretCodec struct{}

func (LegacyTokenSecretCodec) Format() string {
	return SecretPayloadFormatLegacyToken
}

func (LegacyTokenSecretCodec) Version() int {
	return SecretPayloadVersionV1
}

func (LegacyTokenSecretCodec) Encode(secret CarrierSecret) ([]byte, error) {
	token := strings.TrimSpace(secret.AuthToken)
	if token == "" {
		return nil, fmt.Errorf("core: legacy secret payload requires an auth token")
	}
	return []byte(token), nil
}

func (LegacyTokenSecretCodec) Decode(payload []byte) (CarrierSecret, error) {
	token := strings.TrimSpace(string(payload))
	if token == "" {
		return CarrierSecret{}, fmt.Errorf("core: legacy secret payload is empty")
	}
	return CarrierSecret{AuthToken: token}, nil
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
