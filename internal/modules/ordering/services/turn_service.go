package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tablevox/phone-agent-be/internal/core/llm"
	"github.com/tablevox/phone-agent-be/internal/core/tenant"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/repositories"
)

// TurnResult is what the webhook layer speaks and does after one turn.
type TurnResult struct {
	Say          string
	EndCall      bool
	StartPayment bool
	Order        *models.Order
	Booking      *models.Booking
}

// TurnService drives one conversation turn at a time: fresh tenant
// snapshot, grounded reasoning call, state machine, read-back, finalize.
type TurnService struct {
	llm          *llm.Service
	sessions     *SessionStore
	matcher      *Matcher
	availability *AvailabilityService
	finalize     *FinalizeService
	loader       *tenant.Loader
	convRepo     repositories.ConversationRepo
	llmTimeout   time.Duration
	now          func() time.Time
}

func NewTurnService(
	llmService *llm.Service,
	sessions *SessionStore,
	matcher *Matcher,
	availability *AvailabilityService,
	finalize *FinalizeService,
	loader *tenant.Loader,
	convRepo repositories.ConversationRepo,
	llmTimeout time.Duration,
) *TurnService {
	return &TurnService{
		llm:          llmService,
		sessions:     sessions,
		matcher:      matcher,
		availability: availability,
		finalize:     finalize,
		loader:       loader,
		convRepo:     convRepo,
		llmTimeout:   llmTimeout,
		now:          time.Now,
	}
}

// BeginVoiceCall resolves the dialed number to a tenant and opens a voice
// session. The greeting is fixed text, not a reasoning call.
func (s *TurnService) BeginVoiceCall(callSID, from, dialed string) (string, error) {
	snapshot, err := s.loader.ResolveByNumber(dialed)
	if err != nil {
		return "", err
	}

	key := models.VoiceSessionKey(callSID)
	session, err := s.sessions.Acquire(key, func() *models.ConversationSession {
		now := s.now()
		return &models.ConversationSession{
			Key:            key,
			CallSID:        callSID,
			RestaurantID:   snapshot.ID,
			CustomerNumber: from,
			Channel:        models.ChannelVoice,
			State:          models.StateGreeting,
			Intent:         models.IntentOrder,
			CreatedAt:      now,
			LastActivityAt: now,
		}
	})
	if err != nil {
		return "", err
	}
	defer s.sessions.Release(key)

	greeting := fmt.Sprintf("Thanks for calling %s! I can take a pickup order or book you a table. What can I get you?", snapshot.Name)
	session.State = models.StateGathering
	session.AppendTurn(models.SpeakerAssistant, greeting, s.now())

	log.Printf("📞 Call %s started for %s", callSID, snapshot.Name)
	return greeting, nil
}

// HandleUtterance processes one spoken turn of an existing voice session.
func (s *TurnService) HandleUtterance(ctx context.Context, callSID, utterance string) (*TurnResult, error) {
	key := models.VoiceSessionKey(callSID)
	if s.sessions.Peek(key) == nil {
		return nil, models.ErrNotFound
	}
	return s.processTurn(ctx, key, utterance, nil)
}

// HandleTextMessage processes one inbound text, creating the thread
// session on first contact.
func (s *TurnService) HandleTextMessage(ctx context.Context, from, dialed, body string) (*TurnResult, error) {
	snapshot, err := s.loader.ResolveByNumber(dialed)
	if err != nil {
		return nil, err
	}

	key := models.TextSessionKey(from, dialed)
	create := func() *models.ConversationSession {
		now := s.now()
		return &models.ConversationSession{
			Key:            key,
			RestaurantID:   snapshot.ID,
			CustomerNumber: from,
			Channel:        models.ChannelText,
			State:          models.StateGathering,
			Intent:         models.IntentOrder,
			CreatedAt:      now,
			LastActivityAt: now,
		}
	}

	return s.processTurn(ctx, key, body, create)
}

// EndCall discards the voice session; an un-finalized cart dies with it.
func (s *TurnService) EndCall(callSID string) {
	key := models.VoiceSessionKey(callSID)
	if s.sessions.Peek(key) != nil {
		s.sessions.End(key)
		log.Printf("📞 Call %s ended, session discarded", callSID)
	}
}

func (s *TurnService) processTurn(ctx context.Context, key, utterance string, create func() *models.ConversationSession) (*TurnResult, error) {
	if create == nil {
		create = func() *models.ConversationSession { return nil }
	}

	session, err := s.sessions.Acquire(key, create)
	if err != nil {
		return nil, err
	}
	defer s.sessions.Release(key)

	if session.State == models.StateClosed {
		return &TurnResult{Say: "Thanks again, goodbye!", EndCall: true}, nil
	}

	// A fresh snapshot every turn: menu edits mid-conversation take
	// effect on the next turn, never mid-turn.
	snapshot, err := s.loader.ResolveByID(session.RestaurantID.String())
	if err != nil {
		log.Printf("❌ Snapshot reload failed for session %s: %v", key, err)
		return &TurnResult{Say: "I'm sorry, we're having technical trouble right now. Please call back in a few minutes."}, nil
	}

	session.AppendTurn(models.SpeakerCaller, utterance, s.now())
	session.TurnCount++

	intent, err := s.reason(ctx, session, snapshot, utterance)
	if err != nil {
		if !errors.Is(err, models.ErrExternalService) {
			return nil, err
		}
		log.Printf("❌ Reasoning failed twice for session %s: %v", key, err)
		result := &TurnResult{Say: "I'm sorry, I'm having trouble understanding right now. Please call back shortly, or stay on the line and try once more."}
		s.record(session, utterance, result.Say)
		return result, nil
	}

	result := s.apply(ctx, session, snapshot, intent)

	session.AppendTurn(models.SpeakerAssistant, result.Say, s.now())
	s.record(session, utterance, result.Say)

	return result, nil
}

// reason makes the grounded reasoning call, retrying once with the
// simplified prompt before giving up.
func (s *TurnService) reason(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext, utterance string) (*llm.TurnIntent, error) {
	pc := s.buildPromptContext(session, snapshot)

	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	raw, err := s.llm.GenerateResponse(callCtx, llm.BuildTurnPrompt(pc), utterance)
	if err == nil {
		if intent, parseErr := llm.ParseTurnIntent(raw); parseErr == nil {
			return intent, nil
		} else {
			err = parseErr
		}
	}

	log.Printf("⚠️  Reasoning retry for session %s: %v", session.Key, err)

	retryCtx, cancel2 := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel2()

	raw, err = s.llm.GenerateResponse(retryCtx, llm.BuildSimplifiedPrompt(pc), utterance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	intent, err := llm.ParseTurnIntent(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	return intent, nil
}

func (s *TurnService) apply(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	switch intent.Intent {
	case llm.IntentAddItem:
		return s.addItem(session, snapshot, intent)

	case llm.IntentRemoveItem:
		return s.removeItem(session, snapshot, intent)

	case llm.IntentSetQuantity:
		return s.setQuantity(session, snapshot, intent)

	case llm.IntentMenuQuestion, llm.IntentOutOfScope:
		return &TurnResult{Say: intent.Reply}

	case llm.IntentProvideDetails:
		return s.provideDetails(session, snapshot, intent)

	case llm.IntentBookTable:
		return s.bookTable(session, snapshot, intent)

	case llm.IntentConfirm:
		return s.confirm(ctx, session, snapshot, intent)

	case llm.IntentEndCall:
		session.State = models.StateClosed
		return &TurnResult{Say: intent.Reply, EndCall: true}

	default:
		return &TurnResult{Say: intent.Reply}
	}
}

func (s *TurnService) addItem(session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	item, candidates, err := s.matcher.Match(snapshot, intent.Item)
	if errors.Is(err, models.ErrAmbiguousItem) {
		session.EnterClarifying(candidates)
		return &TurnResult{Say: fmt.Sprintf("We have a few of those. Did you mean %s?", joinChoices(candidates))}
	}
	if err != nil {
		return &TurnResult{Say: fmt.Sprintf("I'm sorry, I couldn't find %q on our menu. Would you like to hear what we have?", intent.Item)}
	}

	line := models.CartLine{
		ItemID:          item.ID,
		Name:            item.Name,
		Quantity:        intent.Quantity,
		UnitPriceCents:  item.PriceCents,
		SpecialRequests: intent.SpecialRequests,
	}
	var unknownMods []string
	for _, wanted := range intent.Modifiers {
		mod, modErr := s.matcher.MatchModifier(item, wanted)
		if modErr != nil {
			unknownMods = append(unknownMods, wanted)
			continue
		}
		line.Modifiers = append(line.Modifiers, *mod)
	}

	if err := session.Cart.AddLine(line); err != nil {
		return &TurnResult{Say: "Sorry, I couldn't add that. How many would you like?"}
	}

	if session.State == models.StateClarifying {
		session.LeaveClarifying()
	}

	say := fmt.Sprintf("%d %s added, that's %s. Anything else?", line.Quantity, item.Name, llm.FormatCents(line.LineTotalCents()))
	if len(unknownMods) > 0 {
		say = fmt.Sprintf("%d %s added, but we don't offer %s. The line comes to %s. Anything else?",
			line.Quantity, item.Name, joinChoices(unknownMods), llm.FormatCents(line.LineTotalCents()))
	}
	return &TurnResult{Say: say}
}

func (s *TurnService) removeItem(session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	idx := session.Cart.FindLine(intent.Item)
	if idx < 0 {
		return &TurnResult{Say: fmt.Sprintf("You don't have %s in your order yet.", intent.Item)}
	}
	name := session.Cart.Lines[idx].Name
	session.Cart.RemoveLine(idx)
	return &TurnResult{Say: fmt.Sprintf("%s removed. Your order is now %s. Anything else?", name, llm.FormatCents(session.Cart.SubtotalCents()))}
}

func (s *TurnService) setQuantity(session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	idx := session.Cart.FindLine(intent.Item)
	if idx < 0 {
		return &TurnResult{Say: fmt.Sprintf("You don't have %s in your order yet.", intent.Item)}
	}
	if err := session.Cart.UpdateQuantity(idx, intent.Quantity); err != nil {
		return &TurnResult{Say: "Sorry, I didn't catch how many you'd like."}
	}
	if intent.Quantity == 0 {
		return &TurnResult{Say: fmt.Sprintf("%s taken off. Anything else?", intent.Item)}
	}
	return &TurnResult{Say: fmt.Sprintf("Updated to %d. Anything else?", intent.Quantity)}
}

func (s *TurnService) provideDetails(session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	s.mergeSlots(session, intent)

	if session.Intent == models.IntentBooking {
		return s.bookTable(session, snapshot, intent)
	}

	if !session.Cart.IsEmpty() && session.Pending.OrderReady() {
		session.State = models.StateConfirming
		return &TurnResult{Say: s.orderReadBack(session, snapshot)}
	}

	return &TurnResult{Say: intent.Reply}
}

func (s *TurnService) bookTable(session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	session.Intent = models.IntentBooking
	s.mergeSlots(session, intent)

	if !session.Pending.BookingReady() {
		return &TurnResult{Say: intent.Reply}
	}

	date := *session.Pending.Date
	timeSlot := *session.Pending.Time
	partySize := *session.Pending.PartySize

	free, err := s.availability.CheckSlot(snapshot, date, timeSlot, partySize)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			// Drop the rejected slot so the caller can give another.
			session.Pending.Time = nil
			return &TurnResult{Say: fmt.Sprintf("I'm sorry, we can't do that time. %s. What other time works?", validationHint(err))}
		}
		return &TurnResult{Say: "I'm sorry, I couldn't check availability just now. Could you try that again?"}
	}

	if !free {
		// Offer only slots the availability check actually returned.
		alternatives, altErr := s.availability.AlternativeSlots(snapshot, date, partySize, 3)
		session.Pending.Time = nil
		if altErr != nil || len(alternatives) == 0 {
			return &TurnResult{Say: fmt.Sprintf("I'm sorry, we're fully booked on %s. Would another day work?", date)}
		}
		return &TurnResult{Say: fmt.Sprintf("That time is taken, but on %s we still have %s. Would one of those work?", date, joinChoices(alternatives))}
	}

	session.State = models.StateConfirming
	return &TurnResult{Say: s.bookingReadBack(session)}
}

func (s *TurnService) confirm(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext, intent *llm.TurnIntent) *TurnResult {
	s.mergeSlots(session, intent)

	if session.State != models.StateConfirming || !intent.Confirmed {
		// Not at the read-back yet: get there if we can, otherwise say
		// what's missing.
		if session.Intent == models.IntentBooking {
			return s.bookTable(session, snapshot, intent)
		}
		if session.Cart.IsEmpty() {
			return &TurnResult{Say: "You haven't ordered anything yet. What can I get you?"}
		}
		if !session.Pending.OrderReady() {
			return &TurnResult{Say: "Almost there — can I get a name for the order, and a pickup time or a phone number?"}
		}
		session.State = models.StateConfirming
		return &TurnResult{Say: s.orderReadBack(session, snapshot)}
	}

	session.State = models.StateFinalizing

	if session.Intent == models.IntentBooking {
		return s.finalizeBooking(ctx, session, snapshot)
	}
	return s.finalizeOrder(ctx, session, snapshot)
}

func (s *TurnService) finalizeOrder(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext) *TurnResult {
	order, err := s.finalize.FinalizeOrder(ctx, session, snapshot)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			// Drop the vanished items and put the caller back at the
			// read-back with the corrected total.
			for _, name := range conflict.RemovedItems {
				if idx := session.Cart.FindLine(name); idx >= 0 {
					session.Cart.RemoveLine(idx)
				}
			}
			session.State = models.StateConfirming
			if session.Cart.IsEmpty() {
				session.State = models.StateGathering
				return &TurnResult{Say: fmt.Sprintf("I'm so sorry — %s just sold out, and that was your whole order. Can I get you something else?", joinChoices(conflict.RemovedItems))}
			}
			return &TurnResult{Say: fmt.Sprintf("I'm sorry, %s just sold out, so I've taken it off. %s",
				joinChoices(conflict.RemovedItems), s.orderReadBack(session, snapshot))}
		}

		log.Printf("❌ Finalize failed for session %s: %v", session.Key, err)
		session.State = models.StateConfirming
		return &TurnResult{Say: "I'm sorry, something went wrong placing the order. Shall I try once more?"}
	}

	session.FinalizedRef = order.OrderNumber

	if session.Pending.PayByPhone && session.Channel == models.ChannelVoice {
		return &TurnResult{
			Say:          fmt.Sprintf("Your order number is %s.", order.OrderNumber),
			StartPayment: true,
			Order:        order,
		}
	}

	session.State = models.StateClosed
	say := fmt.Sprintf("You're all set! Order %s, total %s", order.OrderNumber, llm.FormatCents(order.TotalCents))
	if order.PickupTime != "" {
		say += fmt.Sprintf(", ready for pickup at %s", order.PickupTime)
	}
	say += ". Thanks, and see you soon!"
	return &TurnResult{Say: say, EndCall: session.Channel == models.ChannelVoice, Order: order}
}

func (s *TurnService) finalizeBooking(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext) *TurnResult {
	booking, err := s.finalize.FinalizeBooking(ctx, session, snapshot)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			session.State = models.StateConfirming
			session.Pending.Time = nil
			if len(conflict.Alternatives) == 0 {
				return &TurnResult{Say: "I'm so sorry, that table was just taken and nothing else is free that day. Would another day work?"}
			}
			return &TurnResult{Say: fmt.Sprintf("I'm so sorry, that table was just taken. We still have %s that day. Would one of those work?", joinChoices(conflict.Alternatives))}
		}

		log.Printf("❌ Booking finalize failed for session %s: %v", session.Key, err)
		session.State = models.StateConfirming
		return &TurnResult{Say: "I'm sorry, something went wrong with the booking. Shall I try once more?"}
	}

	session.FinalizedRef = booking.BookingRef
	session.State = models.StateClosed

	say := fmt.Sprintf("You're booked! Table for %d on %s at %s, reference %s. See you then!",
		booking.PartySize, booking.Date, booking.Time, booking.BookingRef)
	return &TurnResult{Say: say, EndCall: session.Channel == models.ChannelVoice, Booking: booking}
}

// mergeSlots folds any slots the turn supplied into the session; empty
// fields never overwrite collected values.
func (s *TurnService) mergeSlots(session *models.ConversationSession, intent *llm.TurnIntent) {
	if intent.Name != "" {
		session.Pending.Name = &intent.Name
	}
	if intent.Contact != "" {
		session.Pending.Contact = &intent.Contact
	}
	if intent.PickupTime != "" {
		session.Pending.PickupTime = &intent.PickupTime
	}
	if intent.Date != "" {
		session.Pending.Date = &intent.Date
	}
	if intent.Time != "" {
		session.Pending.Time = &intent.Time
	}
	if intent.PartySize > 0 {
		session.Pending.PartySize = &intent.PartySize
	}
	if intent.PayByPhone {
		session.Pending.PayByPhone = true
	}
}

func (s *TurnService) orderReadBack(session *models.ConversationSession, snapshot *models.RestaurantContext) string {
	var sb strings.Builder
	sb.WriteString("Let me read that back. ")
	for _, line := range session.Cart.Lines {
		sb.WriteString(fmt.Sprintf("%d %s", line.Quantity, line.Name))
		for _, mod := range line.Modifiers {
			sb.WriteString(" with " + mod.Name)
		}
		if line.SpecialRequests != "" {
			sb.WriteString(", " + line.SpecialRequests)
		}
		sb.WriteString(". ")
	}
	sb.WriteString(fmt.Sprintf("Subtotal %s, with tax that's %s total. ",
		llm.FormatCents(session.Cart.SubtotalCents()),
		llm.FormatCents(session.Cart.TotalCents(snapshot.TaxRateBps))))
	sb.WriteString(fmt.Sprintf("For %s", deref(session.Pending.Name)))
	if session.Pending.PickupTime != nil {
		sb.WriteString(fmt.Sprintf(", pickup at %s", *session.Pending.PickupTime))
	}
	sb.WriteString(". Is that all correct?")
	return sb.String()
}

func (s *TurnService) bookingReadBack(session *models.ConversationSession) string {
	return fmt.Sprintf("Let me confirm: a table for %d on %s at %s, under the name %s. Is that right?",
		*session.Pending.PartySize, *session.Pending.Date, *session.Pending.Time, deref(session.Pending.Name))
}

func (s *TurnService) buildPromptContext(session *models.ConversationSession, snapshot *models.RestaurantContext) *llm.PromptContext {
	pc := &llm.PromptContext{
		RestaurantName: snapshot.Name,
		OperatingDays:  snapshot.OperatingDays,
		OpensAt:        snapshot.OpensAt,
		ClosesAt:       snapshot.ClosesAt,
		TaxRateBps:     snapshot.TaxRateBps,
		MaxAdvanceDays: snapshot.MaxAdvanceDays,
		State:          string(session.State),
		Intent:         string(session.Intent),
	}

	sections := make(map[string]*llm.MenuSection)
	var order []string
	for _, item := range snapshot.Items {
		section, exists := sections[item.Category]
		if !exists {
			section = &llm.MenuSection{Name: item.Category}
			sections[item.Category] = section
			order = append(order, item.Category)
		}
		entry := llm.MenuEntry{
			Name:        item.Name,
			Description: item.Description,
			PriceCents:  item.PriceCents,
			DietaryTags: item.DietaryTags,
		}
		for _, mod := range item.Modifiers {
			entry.Modifiers = append(entry.Modifiers, llm.ModifierEntry{Name: mod.Name, PriceDeltaCents: mod.PriceDeltaCents})
		}
		section.Items = append(section.Items, entry)
	}
	for _, name := range order {
		pc.Sections = append(pc.Sections, *sections[name])
	}

	if !session.Cart.IsEmpty() {
		var lines []string
		for _, line := range session.Cart.Lines {
			lines = append(lines, fmt.Sprintf("  %d x %s (%s)", line.Quantity, line.Name, llm.FormatCents(line.LineTotalCents())))
		}
		pc.CartSummary = strings.Join(lines, "\n")
	}

	var pending []string
	if session.Pending.Name != nil {
		pending = append(pending, "name="+*session.Pending.Name)
	}
	if session.Pending.Contact != nil {
		pending = append(pending, "contact="+*session.Pending.Contact)
	}
	if session.Pending.PickupTime != nil {
		pending = append(pending, "pickup="+*session.Pending.PickupTime)
	}
	if session.Pending.Date != nil {
		pending = append(pending, "date="+*session.Pending.Date)
	}
	if session.Pending.Time != nil {
		pending = append(pending, "time="+*session.Pending.Time)
	}
	if session.Pending.PartySize != nil {
		pending = append(pending, fmt.Sprintf("party=%d", *session.Pending.PartySize))
	}
	pc.PendingSummary = strings.Join(pending, ", ")

	start := len(session.History) - 6
	if start < 0 {
		start = 0
	}
	for _, turn := range session.History[start:] {
		pc.RecentTurns = append(pc.RecentTurns, fmt.Sprintf("%s: %s", turn.Speaker, turn.Text))
	}

	return pc
}

// record writes the per-turn audit row; failures are logged, never fatal.
func (s *TurnService) record(session *models.ConversationSession, utterance, reply string) {
	entry := &models.ConversationLog{
		RestaurantID:   session.RestaurantID,
		SessionKey:     session.Key,
		Channel:        string(session.Channel),
		CustomerNumber: session.CustomerNumber,
		Utterance:      utterance,
		Reply:          reply,
		State:          string(session.State),
	}
	if err := s.convRepo.Create(entry); err != nil {
		log.Printf("⚠️  Failed to write conversation log: %v", err)
	}
}

func validationHint(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		msg = msg[idx+2:]
	}
	if msg == "" {
		return "That time doesn't work"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func joinChoices(choices []string) string {
	switch len(choices) {
	case 0:
		return ""
	case 1:
		return choices[0]
	case 2:
		return choices[0] + " or " + choices[1]
	default:
		return strings.Join(choices[:len(choices)-1], ", ") + ", or " + choices[len(choices)-1]
	}
}

// FormatCentsAmount renders integer cents for logs and texts.
func FormatCentsAmount(cents int64) string {
	return llm.FormatCents(cents)
}
