package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/twiml"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/services"
)

// SMSHandler runs the same conversation engine over text threads.
type SMSHandler struct {
	turns *services.TurnService
}

func NewSMSHandler(turns *services.TurnService) *SMSHandler {
	return &SMSHandler{turns: turns}
}

// Incoming handles an inbound text message
func (h *SMSHandler) Incoming(c *fiber.Ctx) error {
	from := c.FormValue("From")
	dialed := c.FormValue("To")
	body := c.FormValue("Body")

	if body == "" {
		return respondMessage(c, "")
	}

	result, err := h.turns.HandleTextMessage(c.Context(), from, dialed, body)
	if err != nil {
		if errors.Is(err, models.ErrStillProcessing) {
			return respondMessage(c, "One second, still working on your last message.")
		}
		if errors.Is(err, models.ErrNotFound) {
			// Unknown tenant number: stay silent.
			return respondMessage(c, "")
		}
		log.Printf("❌ Text turn failed for %s: %v", from, err)
		return respondMessage(c, "Sorry, something went wrong. Please try again.")
	}

	return respondMessage(c, result.Say)
}

// respondMessage renders a TwiML messaging response; empty body means no reply
func respondMessage(c *fiber.Ctx, body string) error {
	var verbs []twiml.Element
	if body != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: body})
	}

	doc, err := twiml.Messages(verbs)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	c.Set("Content-Type", "text/xml")
	return c.SendString(doc)
}
