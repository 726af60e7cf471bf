package telephony

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioProvider sends SMS through the Twilio REST API
type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioProvider creates a new Twilio provider instance
func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioProvider{
		client: client,
		from:   from,
	}
}

// SendSMS sends a text message via Twilio
func (t *TwilioProvider) SendSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS: %v", err)
		return err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}

	log.Printf("✅ SMS sent! SID: %s", *resp.Sid)
	return nil
}

func (t *TwilioProvider) GetProviderName() string {
	return "twilio"
}

// LogProvider writes messages to the log instead of sending them.
// Used in development and tests.
type LogProvider struct{}

func NewLogProvider() *LogProvider {
	return &LogProvider{}
}

func (l *LogProvider) SendSMS(to, body string) error {
	log.Printf("📱 [log provider] SMS to %s: %s", to, body)
	return nil
}

func (l *LogProvider) GetProviderName() string {
	return "log"
}
