package core

import (
	"testing"
)

func TestJSONSecretCodecRoundTrip(t *testing.T) {
	secret := CarrierSecret{
		AccountSID:      "AC00000000000000000000000000000001",
		AuthToken:       "token-value",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret-value",
		Region:          "eu-west-1",
		Metadata:        map[string]any{"note": "staging"},
	}

	encoded, err := (JSONSecretCodec{}).Encode(secret)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := (JSONSecretCodec{}).Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.AccountSID != secret.AccountSID {
		t.Fatalf("account sid mismatch: %q", decoded.AccountSID)
	}
	if decoded.AuthToken != secret.AuthToken {
		t.Fatalf("auth token mismatch: %q", decoded.AuthToken)
	}
	if decoded.AccessKeyID != secret.AccessKeyID || decoded.SecretAccessKey != secret.SecretAccessKey {
		t.Fatal("aws key pair mismatch")
	}
	if decoded.Region != secret.Region {
		t.Fatalf("region mismatch: %q", decoded.Region)
	}
	if decoded.Metadata["note"] != "staging" {
		t.Fatalf("metadata mismatch: %v", decoded.Metadata)
	}
}

func TestJSONSecretCodecRejectsEmptyAndMalformedPayloads(t *testing.T) {
	if _, err := (JSONSecretCodec{}).Decode(nil); err == nil {
		t.Fatal("expected empty payload to fail")
	}
	if _, err := (JSONSecretCodec{}).Decode([]byte("not-json")); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
}

func TestLegacyTokenSecretCodec(t *testing.T) {
	decoded, err := (LegacyTokenSecretCodec{}).Decode([]byte("  bare-token \n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AuthToken != "bare-token" {
		t.Fatalf("expected trimmed bare token, got %q", decoded.AuthToken)
	}

	if _, err := (LegacyTokenSecretCodec{}).Decode([]byte("   ")); err == nil {
		t.Fatal("expected blank payload to fail")
	}
	if _, err := (LegacyTokenSecretCodec{}).Encode(CarrierSecret{}); err == nil {
		t.Fatal("expected encode without token to fail")
	}
}
