package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tablevox/phone-agent-be/internal/core/payment"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/repositories"
)

// PaymentPrompt is what the keypad flow says next. Done means the flow is
// over and the call should return to normal conversation.
type PaymentPrompt struct {
	Say        string
	Done       bool
	Authorized bool
}

// PaymentService runs the keypad card-collection flow for a call. Digits
// arrive one webhook at a time; card number and expiry are encrypted the
// moment they validate, and the raw CVV is only ever used inside the same
// webhook request that delivered it.
type PaymentService struct {
	paymentRepo repositories.PaymentRepo
	orderRepo   repositories.OrderRepo
	gateway     payment.Gateway
	cipher      *CardCipher
	retryLimit  int
	ttl         time.Duration
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepo,
	orderRepo repositories.OrderRepo,
	gateway payment.Gateway,
	cipher *CardCipher,
	retryLimit int,
	ttl time.Duration,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		cipher:      cipher,
		retryLimit:  retryLimit,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Begin starts a fresh card-collection session for an order. At most one
// session is active per call: a leftover active session is cancelled
// first, and retrying always means starting over from the card number.
func (s *PaymentService) Begin(callSID, sessionKey string, order *models.Order) (*PaymentPrompt, error) {
	if active, err := s.paymentRepo.GetActiveByCallSID(callSID); err == nil {
		active.Status = models.PaymentCancelled
		active.ClearSensitive()
		if err := s.paymentRepo.Update(active); err != nil {
			return nil, err
		}
		log.Printf("⚠️  Cancelled leftover payment session %s for call %s", active.ID, callSID)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	session := &models.PaymentSession{
		CallSID:      callSID,
		RestaurantID: order.RestaurantID,
		SessionKey:   sessionKey,
		OrderRef:     order.ID.String(),
		Status:       models.PaymentCollectingCard,
		AmountCents:  order.TotalCents,
		ExpiresAt:    s.now().Add(s.ttl),
	}

	if err := s.paymentRepo.Create(session); err != nil {
		return nil, err
	}

	log.Printf("💳 Payment session started for order %s (%s)", order.OrderNumber, callSID)

	return &PaymentPrompt{
		Say: fmt.Sprintf("The total is %s. Please enter your card number on the keypad, then press pound. Press star at any time to cancel and pay at pickup instead.",
			spokenAmount(order.TotalCents)),
	}, nil
}

// HandleDigits advances the flow with one keypad entry. ErrNotFound means
// no active session exists for the call; ErrSessionExpired means the old
// session timed out and the caller may start over with Begin.
func (s *PaymentService) HandleDigits(ctx context.Context, callSID, digits string) (*PaymentPrompt, error) {
	session, err := s.paymentRepo.GetActiveByCallSID(callSID)
	if err != nil {
		return nil, err
	}

	if session.IsExpired(s.now()) {
		session.Status = models.PaymentCancelled
		session.ClearSensitive()
		if err := s.paymentRepo.Update(session); err != nil {
			return nil, err
		}
		return nil, models.ErrSessionExpired
	}

	if strings.Contains(digits, "*") {
		return s.abandon(session, models.PaymentCancelled,
			"Payment cancelled. Your order is confirmed, you can pay when you pick it up.")
	}

	entry := strings.TrimSuffix(strings.TrimSpace(digits), "#")

	switch session.Status {
	case models.PaymentCollectingCard:
		return s.collectCard(session, entry)
	case models.PaymentCollectingExp:
		return s.collectExpiry(session, entry)
	case models.PaymentCollectingCVV:
		return s.collectCVVAndAuthorize(ctx, session, entry)
	default:
		return nil, fmt.Errorf("payment session %s in unexpected state %s", session.ID, session.Status)
	}
}

func (s *PaymentService) collectCard(session *models.PaymentSession, entry string) (*PaymentPrompt, error) {
	if !isDigits(entry) || len(entry) < 13 || len(entry) > 19 || !luhnValid(entry) {
		return s.rejectEntry(session, "That card number doesn't look right. Please enter it again, then press pound.")
	}

	ciphertext, err := s.cipher.Encrypt(entry)
	if err != nil {
		return nil, err
	}

	session.CardCiphertext = ciphertext
	session.Status = models.PaymentCollectingExp
	if err := s.paymentRepo.Update(session); err != nil {
		return nil, err
	}

	return &PaymentPrompt{
		Say: "Got it. Now enter the expiry date as four digits, month then year, and press pound.",
	}, nil
}

func (s *PaymentService) collectExpiry(session *models.PaymentSession, entry string) (*PaymentPrompt, error) {
	if !validExpiry(entry, s.now()) {
		return s.rejectEntry(session, "That expiry date doesn't look right. Please enter four digits, month then year, and press pound.")
	}

	ciphertext, err := s.cipher.Encrypt(entry)
	if err != nil {
		return nil, err
	}

	session.ExpiryCiphertext = ciphertext
	session.Status = models.PaymentCollectingCVV
	if err := s.paymentRepo.Update(session); err != nil {
		return nil, err
	}

	return &PaymentPrompt{
		Say: "And finally the security code on the back of the card, then pound.",
	}, nil
}

// collectCVVAndAuthorize validates the CVV and runs authorization inside
// this same request. Only a digest of the CVV ever reaches the database,
// and it is wiped again on every path out of authorizing.
func (s *PaymentService) collectCVVAndAuthorize(ctx context.Context, session *models.PaymentSession, cvv string) (*PaymentPrompt, error) {
	if !isDigits(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		return s.rejectEntry(session, "That security code doesn't look right. It should be three or four digits. Please try again, then press pound.")
	}

	session.CVVDigest = DigestCVV(cvv)
	session.Status = models.PaymentAuthorizing
	if err := s.paymentRepo.Update(session); err != nil {
		return nil, err
	}

	// No exit may leave the session in authorizing with cardholder data
	// attached, not even an error return.
	defer func() {
		if session.Status != models.PaymentAuthorizing {
			return
		}
		session.Status = models.PaymentFailed
		session.ClearSensitive()
		if err := s.paymentRepo.Update(session); err != nil {
			log.Printf("⚠️  Failed to wipe payment session %s: %v", session.ID, err)
		}
	}()

	cardNumber, err := s.cipher.Decrypt(session.CardCiphertext)
	if err != nil {
		return s.abandon(session, models.PaymentFailed,
			"Something went wrong processing your card. Your order is confirmed, you can pay at pickup.")
	}
	expiry, err := s.cipher.Decrypt(session.ExpiryCiphertext)
	if err != nil {
		return s.abandon(session, models.PaymentFailed,
			"Something went wrong processing your card. Your order is confirmed, you can pay at pickup.")
	}

	order, err := s.orderRepo.GetByID(session.OrderRef)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Authorize(ctx, &payment.AuthorizationRequest{
		OrderID:      order.ID,
		RestaurantID: session.RestaurantID,
		AmountCents:  session.AmountCents,
		Currency:     "USD",
		CardNumber:   cardNumber,
		ExpiryMMYY:   expiry,
		CVV:          cvv,
	})
	if err != nil {
		log.Printf("❌ Processor unreachable for order %s: %v", order.OrderNumber, err)
		session.ErrorMessage = err.Error()
		return s.abandon(session, models.PaymentFailed,
			"We couldn't reach the card processor. Your order is confirmed, you can pay at pickup.")
	}

	if !result.Authorized {
		session.ErrorMessage = result.DeclineReason
		return s.abandon(session, models.PaymentFailed,
			"The card was declined. Your order is confirmed, you can pay at pickup, or press star and call back to try another card.")
	}

	session.Status = models.PaymentAuthorized
	session.ProcessorRef = result.AuthorizationID
	session.ClearSensitive()
	if err := s.paymentRepo.Update(session); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdatePaymentStatus(order.ID.String(), models.OrderPaymentPaid); err != nil {
		log.Printf("⚠️  Failed to mark order %s paid: %v", order.OrderNumber, err)
	}
	order.PaymentRef = result.AuthorizationID
	order.PaymentStatus = models.OrderPaymentPaid
	s.orderRepo.Update(order)

	log.Printf("✅ Payment authorized for order %s (%s)", order.OrderNumber, result.AuthorizationID)

	return &PaymentPrompt{
		Say:        fmt.Sprintf("Payment of %s approved. Thank you!", spokenAmount(session.AmountCents)),
		Done:       true,
		Authorized: true,
	}, nil
}

// rejectEntry counts a malformed entry against the retry limit. Hitting
// the limit ends the flow without ever calling the processor.
func (s *PaymentService) rejectEntry(session *models.PaymentSession, say string) (*PaymentPrompt, error) {
	session.RetryCount++
	if session.RetryCount >= s.retryLimit {
		return s.abandon(session, models.PaymentFailed,
			"We weren't able to take your card over the phone. Your order is confirmed, you can pay when you pick it up.")
	}

	if err := s.paymentRepo.Update(session); err != nil {
		return nil, err
	}

	return &PaymentPrompt{Say: say}, nil
}

// abandon ends the flow in a terminal state, wipes cardholder data, and
// flags the order for payment at pickup.
func (s *PaymentService) abandon(session *models.PaymentSession, status, say string) (*PaymentPrompt, error) {
	session.Status = status
	session.ClearSensitive()
	if err := s.paymentRepo.Update(session); err != nil {
		return nil, err
	}

	if session.OrderRef != "" {
		if err := s.orderRepo.UpdatePaymentStatus(session.OrderRef, models.OrderPaymentUnpaid); err != nil {
			log.Printf("⚠️  Failed to mark order %s unpaid: %v", session.OrderRef, err)
		}
	}

	return &PaymentPrompt{Say: say, Done: true}, nil
}

// PurgeExpired deletes timed-out sessions; run from the scheduler.
func (s *PaymentService) PurgeExpired() {
	count, err := s.paymentRepo.PurgeExpired(s.now())
	if err != nil {
		log.Printf("⚠️  Payment session purge failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("🧹 Purged %d expired payment sessions", count)
	}
}

// luhnValid runs the Luhn checksum over a digit string
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// validExpiry accepts MMYY not before the current month
func validExpiry(entry string, now time.Time) bool {
	if len(entry) != 4 || !isDigits(entry) {
		return false
	}

	month := int(entry[0]-'0')*10 + int(entry[1]-'0')
	year := 2000 + int(entry[2]-'0')*10 + int(entry[3]-'0')
	if month < 1 || month > 12 {
		return false
	}

	if year < now.Year() {
		return false
	}
	if year == now.Year() && month < int(now.Month()) {
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// spokenAmount renders cents the way the voice should say them
func spokenAmount(cents int64) string {
	return fmt.Sprintf("%d dollars and %d cents", cents/100, cents%100)
}
