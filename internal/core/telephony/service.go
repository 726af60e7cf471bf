package telephony

import (
	"log"
)

// Service wraps a telephony provider
type Service struct {
	provider Provider
}

// NewService creates the telephony service from environment config
func NewService() *Service {
	cfg, err := LoadProviderFromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to load telephony config: %v", err)
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create telephony provider: %v", err)
	}

	log.Printf("✅ Telephony service initialized with provider: %s", provider.GetProviderName())

	return &Service{provider: provider}
}

// NewServiceWithProvider creates a service with a specific provider (for testing)
func NewServiceWithProvider(provider Provider) *Service {
	return &Service{provider: provider}
}

// SendSMS sends a text message through the configured provider
func (s *Service) SendSMS(to, body string) error {
	return s.provider.SendSMS(to, body)
}

// GetProviderName returns the active provider's name
func (s *Service) GetProviderName() string {
	return s.provider.GetProviderName()
}
