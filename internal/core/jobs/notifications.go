package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tablevox/phone-agent-be/internal/core/telephony"
)

// SMSNotificationHandler delivers queued confirmation texts
type SMSNotificationHandler struct {
	telephony *telephony.Service
}

func NewSMSNotificationHandler(telephonyService *telephony.Service) *SMSNotificationHandler {
	return &SMSNotificationHandler{telephony: telephonyService}
}

func (h *SMSNotificationHandler) GetType() string {
	return TypeSendSMS
}

func (h *SMSNotificationHandler) Handle(ctx context.Context, job *Job) error {
	var payload SMSPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid sms payload: %w", err)
	}

	if payload.To == "" || payload.Body == "" {
		return fmt.Errorf("sms payload missing to or body")
	}

	return h.telephony.SendSMS(payload.To, payload.Body)
}
