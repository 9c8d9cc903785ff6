// Package backendtest runs an in-process storefront backend over real HTTP
// for tests: payment intents, signature verification, idempotent order
// creation and order cancellation.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/agrikart/storefront/domain"
)

type intentRecord struct {
	IntentID       string
	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
}

// Server is the fake backend. The Fail* knobs make the next N calls of the
// matching endpoint answer 500, for retry and breaker tests.
type Server struct {
	mu sync.Mutex

	intents     map[string]intentRecord  // by gateway order id
	ordersByKey map[string]domain.Order  // by idempotency key
	refOwner    map[string]string        // payment reference -> idempotency key
	cancelled   map[string]bool          // by order id
	intentSeq   int
	orderSeq    int

	VerifyOK           bool
	FailPaymentCreates int
	FailOrders         int

	PaymentCreateCalls int
	OrderCalls         int

	srv *httptest.Server
}

func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		intents:     make(map[string]intentRecord),
		ordersByKey: make(map[string]domain.Order),
		refOwner:    make(map[string]string),
		cancelled:   make(map[string]bool),
		VerifyOK:    true,
	}

	r := chi.NewRouter()
	r.Post("/payments/create", s.createIntent)
	r.Post("/payments/verify", s.verify)
	r.Post("/orders", s.createOrder)
	r.Delete("/orders/{id}", s.cancelOrder)

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) URL() string { return s.srv.URL }

// Orders returns every order created so far.
func (s *Server) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.ordersByKey))
	for _, o := range s.ordersByKey {
		out = append(out, o)
	}
	return out
}

func (s *Server) Cancelled(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled[orderID]
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func (s *Server) createIntent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PaymentCreateCalls++
	if s.FailPaymentCreates > 0 {
		s.FailPaymentCreates--
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "gateway unavailable"})
		return
	}

	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	s.intentSeq++
	rec := intentRecord{
		IntentID:       fmt.Sprintf("pi_%04d", s.intentSeq),
		GatewayOrderID: fmt.Sprintf("gw_order_%04d", s.intentSeq),
		Amount:         req.Amount,
		Currency:       req.Currency,
	}
	s.intents[rec.GatewayOrderID] = rec

	respondJSON(w, http.StatusCreated, map[string]any{
		"intent_id":        rec.IntentID,
		"gateway_order_id": rec.GatewayOrderID,
		"amount":           rec.Amount,
		"currency":         rec.Currency,
	})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		GatewayOrderID   string `json:"gateway_order_id"`
		GatewayPaymentID string `json:"gateway_payment_id"`
		Signature        string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	_, known := s.intents[req.GatewayOrderID]
	verified := s.VerifyOK && known && req.GatewayPaymentID != "" && req.Signature != ""
	respondJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.OrderCalls++
	if s.FailOrders > 0 {
		s.FailOrders--
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "temporarily unavailable"})
		return
	}

	var req struct {
		Items            []domain.CartItem      `json:"items"`
		Customer         domain.CustomerProfile `json:"customer"`
		PaymentReference string                 `json:"payment_reference"`
		IdempotencyKey   string                 `json:"idempotency_key"`
		TotalAmount      decimal.Decimal        `json:"total_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.IdempotencyKey == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "idempotency_key is required"})
		return
	}

	// same key replays the stored order instead of creating a duplicate
	if existing, ok := s.ordersByKey[req.IdempotencyKey]; ok {
		respondJSON(w, http.StatusOK, existing)
		return
	}

	// a payment reference consumed by a different order is a hard conflict
	if owner, ok := s.refOwner[req.PaymentReference]; ok && owner != req.IdempotencyKey {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "payment reference already consumed"})
		return
	}

	s.orderSeq++
	order := domain.Order{
		OrderID:          fmt.Sprintf("ord_%04d", s.orderSeq),
		IdempotencyKey:   req.IdempotencyKey,
		Items:            req.Items,
		Customer:         req.Customer,
		PaymentReference: req.PaymentReference,
		TotalAmount:      req.TotalAmount,
		CreatedAt:        time.Now().UTC(),
		Status:           domain.OrderStatusPlaced,
	}
	s.ordersByKey[req.IdempotencyKey] = order
	s.refOwner[req.PaymentReference] = req.IdempotencyKey

	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	s.cancelled[id] = true
	w.WriteHeader(http.StatusNoContent)
}
