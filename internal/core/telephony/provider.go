package telephony

import (
	"fmt"
	"os"
)

// Provider is the interface for outbound messaging backends. Voice
// replies travel back inside the webhook response (TwiML); only SMS and
// texts go out through here.
type Provider interface {
	// SendSMS sends a text message to the destination number.
	SendSMS(to, body string) error

	// GetProviderName returns the provider name for logging
	GetProviderName() string
}

// ProviderType for the factory
type ProviderType string

const (
	ProviderTwilio ProviderType = "twilio"
	ProviderLog    ProviderType = "log"
)

// ProviderConfig holds provider configuration
type ProviderConfig struct {
	Type ProviderType

	// Twilio specific
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioSMSFrom    string
}

// NewProvider is the factory for telephony providers
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderTwilio:
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioSMSFrom == "" {
			return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_SMS_FROM are required")
		}
		return NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioSMSFrom), nil

	case ProviderLog:
		return NewLogProvider(), nil

	default:
		return nil, fmt.Errorf("unknown telephony provider type: %s", cfg.Type)
	}
}

// LoadProviderFromEnv loads config from environment variables
func LoadProviderFromEnv() (*ProviderConfig, error) {
	providerType := os.Getenv("TELEPHONY_PROVIDER")
	if providerType == "" {
		providerType = "twilio" // default
	}

	return &ProviderConfig{
		Type:             ProviderType(providerType),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioSMSFrom:    os.Getenv("TWILIO_SMS_FROM"),
	}, nil
}
