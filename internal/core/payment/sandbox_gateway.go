package payment

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
)

// SandboxGateway approves or declines deterministically without touching a
// real processor. Used in development and tests.
type SandboxGateway struct{}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{}
}

// Authorize approves everything except the well-known decline test cards
func (g *SandboxGateway) Authorize(ctx context.Context, req *AuthorizationRequest) (*AuthorizationResult, error) {
	if strings.HasSuffix(req.CardNumber, "0002") {
		log.Printf("⚠️  Sandbox decline for order %s", req.OrderID)
		return &AuthorizationResult{
			Authorized:    false,
			DeclineReason: DeclineGeneric,
		}, nil
	}

	authID := "sandbox_" + uuid.New().String()
	log.Printf("✅ Sandbox authorization: %s", authID)

	return &AuthorizationResult{
		Authorized:      true,
		AuthorizationID: authID,
	}, nil
}

// Name returns the gateway name
func (g *SandboxGateway) Name() string {
	return "Sandbox Gateway"
}
