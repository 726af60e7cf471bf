package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ProcessorGateway talks to the card processor over HTTPS
type ProcessorGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProcessorGateway creates a gateway against the configured processor
func NewProcessorGateway(apiKey, baseURL string) *ProcessorGateway {
	return &ProcessorGateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Authorize posts the card details to the processor's authorize endpoint
func (g *ProcessorGateway) Authorize(ctx context.Context, req *AuthorizationRequest) (*AuthorizationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authorization request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/authorizations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("processor error: status %d", resp.StatusCode)
	}

	var result AuthorizationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse processor response: %w", err)
	}

	if result.Authorized {
		log.Printf("✅ Authorization approved: %s", result.AuthorizationID)
	} else {
		log.Printf("⚠️  Authorization declined: %s", result.DeclineReason)
	}

	return &result, nil
}

// Name returns the gateway name
func (g *ProcessorGateway) Name() string {
	return "Card Processor Gateway"
}
