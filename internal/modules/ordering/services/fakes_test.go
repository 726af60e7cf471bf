package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tablevox/phone-agent-be/internal/core/jobs"
	"github.com/tablevox/phone-agent-be/internal/core/payment"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
)

// --- in-memory repositories ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.PaymentSession
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{sessions: make(map[uuid.UUID]*models.PaymentSession)}
}

func (r *fakePaymentRepo) Create(session *models.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakePaymentRepo) GetByID(id string) (*models.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	if s, ok := r.sessions[uid]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakePaymentRepo) GetActiveByCallSID(callSID string) (*models.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.PaymentSession
	for _, s := range r.sessions {
		if s.CallSID != callSID || s.IsTerminal() {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, models.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

// newestByCallSID returns the newest session for a call, terminal or not.
func (r *fakePaymentRepo) newestByCallSID(callSID string) (*models.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.PaymentSession
	for _, s := range r.sessions {
		if s.CallSID != callSID {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, models.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

func (r *fakePaymentRepo) Update(session *models.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakePaymentRepo) PurgeExpired(now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id, s := range r.sessions {
		if s.Status != models.PaymentAuthorized && now.After(s.ExpiresAt) {
			delete(r.sessions, id)
			purged++
		}
	}
	return purged, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order // by id
	byRef  map[string]string        // session ref -> id

	createCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*models.Order),
		byRef:  make(map[string]string),
	}
}

func (r *fakeOrderRepo) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if _, exists := r.byRef[order.SessionRef]; exists {
		return fmt.Errorf("duplicate key value violates unique constraint \"idx_orders_session_ref\"")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	r.orders[order.ID.String()] = &copied
	r.byRef[order.SessionRef] = order.ID.String()
	return nil
}

func (r *fakeOrderRepo) GetByID(id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeOrderRepo) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			copied := *o
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeOrderRepo) GetBySessionRef(sessionRef string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byRef[sessionRef]; ok {
		copied := *r.orders[id]
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeOrderRepo) GetByRestaurantID(restaurantID string, limit int) ([]models.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(orderID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok {
		o.PaymentStatus = status
		return nil
	}
	return models.ErrNotFound
}

func (r *fakeOrderRepo) Update(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.orders[order.ID.String()] = &copied
	return nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking // by session ref
	counts   map[string]int64           // "date|time" -> confirmed bookings
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: make(map[string]*models.Booking),
		counts:   make(map[string]int64),
	}
}

func slotKey(date, timeSlot string) string {
	return date + "|" + timeSlot
}

func (r *fakeBookingRepo) setCount(date, timeSlot string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[slotKey(date, timeSlot)] = count
}

func (r *fakeBookingRepo) Create(booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bookings[booking.SessionRef]; exists {
		return fmt.Errorf("duplicate key value violates unique constraint \"idx_bookings_session_ref\"")
	}
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	copied := *booking
	r.bookings[booking.SessionRef] = &copied
	r.counts[slotKey(booking.Date, booking.Time)]++
	return nil
}

func (r *fakeBookingRepo) GetByBookingRef(bookingRef string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.BookingRef == bookingRef {
			copied := *b
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeBookingRepo) GetBySessionRef(sessionRef string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[sessionRef]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeBookingRepo) CountAtSlot(restaurantID, date, timeSlot string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[slotKey(date, timeSlot)], nil
}

func (r *fakeBookingRepo) GetByRestaurantAndDate(restaurantID, date string) ([]models.Booking, error) {
	return nil, nil
}

func (r *fakeBookingRepo) UpdateStatus(bookingID, status string) error {
	return nil
}

type fakeRestaurantRepo struct {
	restaurant *models.Restaurant
	items      []models.MenuItem
}

func (r *fakeRestaurantRepo) Create(restaurant *models.Restaurant) error { return nil }

func (r *fakeRestaurantRepo) GetByID(id string) (*models.Restaurant, error) {
	if r.restaurant != nil && r.restaurant.ID.String() == id {
		copied := *r.restaurant
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeRestaurantRepo) GetByPhoneNumber(phoneNumber string) (*models.Restaurant, error) {
	if r.restaurant != nil && r.restaurant.PhoneNumber == phoneNumber {
		copied := *r.restaurant
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeRestaurantRepo) GetMenuItems(restaurantID string, onlyAvailable bool) ([]models.MenuItem, error) {
	var items []models.MenuItem
	for _, item := range r.items {
		if onlyAvailable && !item.Available {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *fakeRestaurantRepo) Update(restaurant *models.Restaurant) error { return nil }
func (r *fakeRestaurantRepo) CreateMenuItem(item *models.MenuItem) error { return nil }
func (r *fakeRestaurantRepo) UpdateMenuItem(item *models.MenuItem) error { return nil }
func (r *fakeRestaurantRepo) SetMenuItemAvailability(itemID string, available bool) error {
	for i := range r.items {
		if r.items[i].ID.String() == itemID {
			r.items[i].Available = available
		}
	}
	return nil
}

type fakeConversationRepo struct {
	mu   sync.Mutex
	logs []models.ConversationLog
}

func (r *fakeConversationRepo) Create(entry *models.ConversationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *fakeConversationRepo) GetBySessionKey(sessionKey string, limit int) ([]models.ConversationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ConversationLog(nil), r.logs...), nil
}

// --- gateway, queue, reasoning fakes ---

type fakeGateway struct {
	mu     sync.Mutex
	calls  []payment.AuthorizationRequest
	result *payment.AuthorizationResult
	err    error
}

func (g *fakeGateway) Authorize(ctx context.Context, req *payment.AuthorizationRequest) (*payment.AuthorizationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, *req)
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &payment.AuthorizationResult{Authorized: true, AuthorizationID: "auth_test"}, nil
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeEnqueuer struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (q *fakeEnqueuer) Enqueue(ctx context.Context, restaurantID uuid.UUID, jobType string, payload interface{}) (*jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return &jobs.Job{ID: uuid.New()}, nil
}

// scriptedProvider plays back canned reasoning replies in order.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (p *scriptedProvider) GenerateResponse(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.replies) {
		return p.replies[i], nil
	}
	return "", fmt.Errorf("scripted provider exhausted after %d calls", i)
}

func (p *scriptedProvider) GetProviderName() string { return "scripted" }
