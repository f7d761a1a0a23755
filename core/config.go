package core

import (
	"fmt"
	"strings"
)

type EncryptionConfig struct {
	Key         string `koanf:"key" mapstructure:"key"`
	KeyID       string `koanf:"key_id" mapstructure:"key_id"`
	AllowLegacy bool   `koanf:"allow_legacy" mapstructure:"allow_legacy"`
}

type CarrierConfig struct {
	TwilioBaseURL       string `koanf:"twilio_base_url" mapstructure:"twilio_base_url"`
	SESBaseURL          string `koanf:"ses_base_url" mapstructure:"ses_base_url"`
	MessagingServiceSID string `koanf:"messaging_service_sid" mapstructure:"messaging_service_sid"`
	ConfigurationSet    string `koanf:"configuration_set" mapstructure:"configuration_set"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Encryption  EncryptionConfig `koanf:"encryption" mapstructure:"encryption"`
	Carriers    CarrierConfig    `koanf:"carriers" mapstructure:"carriers"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "messaging",
		Encryption: EncryptionConfig{
			KeyID:       "app-key",
			AllowLegacy: true,
		},
		Carriers: CarrierConfig{
			TwilioBaseURL: "https://api.twilio.com",
			SESBaseURL:    "https://email.us-east-1.amazonaws.com",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return nil
}
