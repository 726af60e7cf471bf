package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Intent values the reasoning service may declare for a turn.
const (
	IntentAddItem        = "add_item"
	IntentRemoveItem     = "remove_item"
	IntentSetQuantity    = "set_quantity"
	IntentMenuQuestion   = "menu_question"
	IntentProvideDetails = "provide_details"
	IntentConfirm        = "confirm"
	IntentBookTable      = "book_table"
	IntentOutOfScope     = "out_of_scope"
	IntentEndCall        = "end_call"
)

// TurnIntent is the structured reply for one turn: the declared intent,
// the text to speak, and any slots the caller supplied.
type TurnIntent struct {
	Intent string `json:"intent"`
	Reply  string `json:"reply"`

	Item            string   `json:"item,omitempty"`
	Quantity        int      `json:"quantity,omitempty"`
	Modifiers       []string `json:"modifiers,omitempty"`
	SpecialRequests string   `json:"special_requests,omitempty"`

	Name       string `json:"name,omitempty"`
	Contact    string `json:"contact,omitempty"`
	PickupTime string `json:"pickup_time,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	PartySize  int    `json:"party_size,omitempty"`
	PayByPhone bool   `json:"pay_by_phone,omitempty"`

	Confirmed bool `json:"confirmed,omitempty"`
}

var knownIntents = map[string]bool{
	IntentAddItem:        true,
	IntentRemoveItem:     true,
	IntentSetQuantity:    true,
	IntentMenuQuestion:   true,
	IntentProvideDetails: true,
	IntentConfirm:        true,
	IntentBookTable:      true,
	IntentOutOfScope:     true,
	IntentEndCall:        true,
}

// ParseTurnIntent parses the raw reasoning reply into a TurnIntent.
// Models sometimes wrap JSON in markdown code fences; strip them first.
func ParseTurnIntent(raw string) (*TurnIntent, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var intent TurnIntent
	if err := json.Unmarshal([]byte(cleaned), &intent); err != nil {
		return nil, fmt.Errorf("invalid intent JSON: %w", err)
	}

	if !knownIntents[intent.Intent] {
		return nil, fmt.Errorf("unknown intent %q", intent.Intent)
	}
	if intent.Reply == "" {
		return nil, fmt.Errorf("intent %q carries no reply text", intent.Intent)
	}
	if intent.Intent == IntentAddItem && intent.Quantity == 0 {
		intent.Quantity = 1
	}

	return &intent, nil
}
