package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/twiml"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/services"
)

const (
	gatherAction = "/webhooks/voice/gather"
	keypadAction = "/webhooks/voice/keypad"
)

// VoiceHandler answers Twilio voice webhooks with TwiML. Each request is
// one turn: what the caller said (or typed) comes in, what to say and
// whether to keep listening goes back.
type VoiceHandler struct {
	turns    *services.TurnService
	payments *services.PaymentService
}

func NewVoiceHandler(turns *services.TurnService, payments *services.PaymentService) *VoiceHandler {
	return &VoiceHandler{
		turns:    turns,
		payments: payments,
	}
}

// Incoming handles the initial webhook for a new call
func (h *VoiceHandler) Incoming(c *fiber.Ctx) error {
	callSID := c.FormValue("CallSid")
	from := c.FormValue("From")
	dialed := c.FormValue("To")

	greeting, err := h.turns.BeginVoiceCall(callSID, from, dialed)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("⚠️  Call to unknown number %s", dialed)
			return respondVoice(c,
				say("Sorry, this number is not in service. Goodbye."),
				&twiml.VoiceHangup{},
			)
		}
		log.Printf("❌ Failed to start call %s: %v", callSID, err)
		return respondVoice(c,
			say("Sorry, we can't take your call right now. Please try again later."),
			&twiml.VoiceHangup{},
		)
	}

	return respondVoice(c, gatherSpeech(greeting))
}

// Gather handles a speech result for an ongoing call
func (h *VoiceHandler) Gather(c *fiber.Ctx) error {
	callSID := c.FormValue("CallSid")
	speech := c.FormValue("SpeechResult")

	if speech == "" {
		return respondVoice(c, gatherSpeech("Sorry, I didn't catch that. Could you say it again?"))
	}

	result, err := h.turns.HandleUtterance(c.Context(), callSID, speech)
	if err != nil {
		if errors.Is(err, models.ErrStillProcessing) {
			return respondVoice(c, gatherSpeech("Just a moment, I'm still with you. Go ahead."))
		}
		if errors.Is(err, models.ErrNotFound) {
			return respondVoice(c,
				say("Sorry, something went wrong with this call. Please call back."),
				&twiml.VoiceHangup{},
			)
		}
		log.Printf("❌ Turn failed for call %s: %v", callSID, err)
		return respondVoice(c, gatherSpeech("Sorry, something went wrong. Could you say that again?"))
	}

	if result.StartPayment {
		prompt, payErr := h.payments.Begin(callSID, models.VoiceSessionKey(callSID), result.Order)
		if payErr != nil {
			log.Printf("❌ Failed to start payment for call %s: %v", callSID, payErr)
			return respondVoice(c,
				say(result.Say+" We couldn't start card payment, so please pay at pickup. Thanks, goodbye!"),
				&twiml.VoiceHangup{},
			)
		}
		return respondVoice(c, say(result.Say), gatherDigits(prompt.Say))
	}

	if result.EndCall {
		return respondVoice(c, say(result.Say), &twiml.VoiceHangup{})
	}

	return respondVoice(c, gatherSpeech(result.Say))
}

// Keypad handles DTMF digits during the card-payment flow
func (h *VoiceHandler) Keypad(c *fiber.Ctx) error {
	callSID := c.FormValue("CallSid")
	digits := c.FormValue("Digits")

	prompt, err := h.payments.HandleDigits(c.Context(), callSID, digits)
	if err != nil {
		if errors.Is(err, models.ErrSessionExpired) {
			return respondVoice(c,
				say("That took a little too long, so we've stopped card entry. Your order is still confirmed and you can pay at pickup. Thanks, goodbye!"),
				&twiml.VoiceHangup{},
			)
		}
		if errors.Is(err, models.ErrNotFound) {
			return respondVoice(c, gatherSpeech("There's no card payment in progress. Anything else I can help with?"))
		}
		log.Printf("❌ Keypad turn failed for call %s: %v", callSID, err)
		return respondVoice(c,
			say("Something went wrong with card entry. Your order is confirmed, you can pay at pickup. Goodbye!"),
			&twiml.VoiceHangup{},
		)
	}

	if prompt.Done {
		return respondVoice(c, say(prompt.Say), say("Thanks for calling, goodbye!"), &twiml.VoiceHangup{})
	}

	return respondVoice(c, gatherDigits(prompt.Say))
}

// Status handles call status callbacks; a finished call discards its session
func (h *VoiceHandler) Status(c *fiber.Ctx) error {
	callSID := c.FormValue("CallSid")
	status := c.FormValue("CallStatus")

	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		h.turns.EndCall(callSID)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: text}
}

func gatherSpeech(prompt string) *twiml.VoiceGather {
	return &twiml.VoiceGather{
		Input:         "speech",
		Action:        gatherAction,
		Method:        "POST",
		SpeechTimeout: "auto",
		InnerElements: []twiml.Element{say(prompt)},
	}
}

func gatherDigits(prompt string) *twiml.VoiceGather {
	return &twiml.VoiceGather{
		Input:         "dtmf",
		Action:        keypadAction,
		Method:        "POST",
		FinishOnKey:   "#",
		Timeout:       "30",
		InnerElements: []twiml.Element{say(prompt)},
	}
}

// respondVoice renders verbs as a TwiML voice response
func respondVoice(c *fiber.Ctx, verbs ...twiml.Element) error {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	c.Set("Content-Type", "text/xml")
	return c.SendString(doc)
}
