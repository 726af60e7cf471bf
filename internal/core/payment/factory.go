package payment

import (
	"fmt"
	"log"

	"github.com/tablevox/phone-agent-be/internal/shared/config"
)

// NewGateway creates a payment gateway based on configuration
func NewGateway(cfg *config.Config) (Gateway, error) {
	switch cfg.PaymentMode {
	case "processor":
		if cfg.ProcessorAPIKey == "" {
			return nil, fmt.Errorf("PROCESSOR_API_KEY is required for processor payment mode")
		}
		log.Println("💳 Using Card Processor Gateway")
		return NewProcessorGateway(cfg.ProcessorAPIKey, cfg.ProcessorBaseURL), nil

	case "sandbox":
		log.Println("💳 Using Sandbox Gateway")
		return NewSandboxGateway(), nil

	default:
		// Default to sandbox
		log.Printf("⚠️  Unknown payment mode '%s', defaulting to sandbox", cfg.PaymentMode)
		return NewSandboxGateway(), nil
	}
}
