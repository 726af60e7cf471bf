package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel distinguishes a live call from a text thread.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelText  Channel = "text"
)

// ConvState is the turn processor state.
type ConvState string

const (
	StateGreeting   ConvState = "greeting"
	StateGathering  ConvState = "gathering"
	StateClarifying ConvState = "clarifying"
	StateConfirming ConvState = "confirming"
	StateFinalizing ConvState = "finalizing"
	StateClosed     ConvState = "closed"
)

// SessionIntent marks whether the caller is building an order or a booking.
type SessionIntent string

const (
	IntentOrder   SessionIntent = "order"
	IntentBooking SessionIntent = "booking"
)

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerCaller    Speaker = "caller"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one transcript entry.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// PendingFields carries the slots collected so far. Each slot is an
// explicit optional typed field, so partially-collected state is visible
// in the type instead of hiding in a free-form map.
type PendingFields struct {
	Name       *string `json:"name,omitempty"`
	Contact    *string `json:"contact,omitempty"`
	PickupTime *string `json:"pickup_time,omitempty"` // "18:30"
	Date       *string `json:"date,omitempty"`        // "2026-09-01"
	Time       *string `json:"time,omitempty"`        // "19:00"
	PartySize  *int    `json:"party_size,omitempty"`
	PayByPhone bool    `json:"pay_by_phone,omitempty"`
}

// OrderReady reports whether an order has everything it needs to be
// finalized: a name plus either a contact number or a pickup time.
func (p PendingFields) OrderReady() bool {
	return p.Name != nil && (p.Contact != nil || p.PickupTime != nil)
}

// BookingReady reports whether a table booking has all required slots.
func (p PendingFields) BookingReady() bool {
	return p.Name != nil && p.Date != nil && p.Time != nil && p.PartySize != nil
}

// MaxHistoryTurns caps the in-memory transcript; oldest turns are dropped.
const MaxHistoryTurns = 40

// ConversationSession is the mutable per-call / per-thread state. Voice
// sessions are memory-only and die with the call; text sessions persist
// in memory under a sliding idle expiry and are swept by the scheduler.
type ConversationSession struct {
	Key            string        `json:"key"`
	CallSID        string        `json:"call_sid,omitempty"`
	RestaurantID   uuid.UUID     `json:"restaurant_id"`
	CustomerNumber string        `json:"customer_number"`
	Channel        Channel       `json:"channel"`
	State          ConvState     `json:"state"`
	ReturnState    ConvState     `json:"return_state,omitempty"` // where clarifying returns to
	Intent         SessionIntent `json:"intent"`

	History    []Turn        `json:"history"`
	Cart       Cart          `json:"cart"`
	Pending    PendingFields `json:"pending"`
	Candidates []string      `json:"candidates,omitempty"` // pending disambiguation choices

	TurnCount      int       `json:"turn_count"`
	FinalizedRef   string    `json:"finalized_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// VoiceSessionKey keys a voice session by the provider call id.
func VoiceSessionKey(callSID string) string {
	return "call:" + callSID
}

// TextSessionKey keys a text thread by the customer/restaurant number
// pair, so separate messages land in the same thread.
func TextSessionKey(customerNumber, restaurantNumber string) string {
	return fmt.Sprintf("text:%s|%s", customerNumber, restaurantNumber)
}

// AppendTurn records a transcript entry, dropping the oldest once the cap
// is reached.
func (s *ConversationSession) AppendTurn(speaker Speaker, text string, at time.Time) {
	s.History = append(s.History, Turn{Speaker: speaker, Text: text, At: at})
	if len(s.History) > MaxHistoryTurns {
		s.History = s.History[len(s.History)-MaxHistoryTurns:]
	}
	s.LastActivityAt = at
}

// EnterClarifying moves to the clarifying sub-state, remembering where to
// come back to. Clarifying is only reachable from gathering or confirming.
func (s *ConversationSession) EnterClarifying(candidates []string) {
	if s.State != StateClarifying {
		s.ReturnState = s.State
	}
	s.State = StateClarifying
	s.Candidates = candidates
}

// LeaveClarifying returns to the state clarifying was entered from.
func (s *ConversationSession) LeaveClarifying() {
	if s.ReturnState != "" {
		s.State = s.ReturnState
	} else {
		s.State = StateGathering
	}
	s.ReturnState = ""
	s.Candidates = nil
}

// IdleSince reports how long the session has been idle at the given time.
func (s *ConversationSession) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}
