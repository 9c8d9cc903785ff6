// Package storefront wires the cart and checkout engine together: a durable
// cart slot shared by every open view, a synchronizer keeping those views
// consistent, and a guarded checkout flow that finalizes an order exactly
// once per paid attempt.
package storefront

import (
	"context"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agrikart/storefront/domain"
	"github.com/agrikart/storefront/internal/backend"
	"github.com/agrikart/storefront/internal/cartstore"
	"github.com/agrikart/storefront/internal/checkout"
	"github.com/agrikart/storefront/internal/config"
	"github.com/agrikart/storefront/internal/finalizer"
	"github.com/agrikart/storefront/internal/gateway"
	"github.com/agrikart/storefront/internal/invoice"
	"github.com/agrikart/storefront/internal/syncer"
)

// Engine holds the process-wide pieces: the durable store file, the
// cross-context broadcaster and the backend clients. Each open view of the
// cart gets its own View via OpenView.
type Engine struct {
	cfg       *config.Config
	db        *bolt.DB
	redis     *redis.Client
	bc        syncer.Broadcaster
	gateway   *gateway.Client
	finalizer *finalizer.Finalizer
	invoices  *invoice.Assembler
}

// NewEngine opens the durable slot file and builds the backend clients.
// token supplies the bearer credential owned by the auth collaborator.
func NewEngine(cfg *config.Config, token backend.TokenSource) (*Engine, error) {
	db, err := bolt.Open(cfg.CartPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cart storage: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		db:       db,
		bc:       syncer.NewMemoryBroadcaster(),
		invoices: invoice.New(invoice.DefaultConfig()),
	}

	if cfg.RedisAddr != "" {
		e.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		e.bc = syncer.NewRedisBroadcaster(e.redis)
	}

	b := backend.New(cfg.BackendURL, token, cfg.RequestTimeout)
	e.gateway = gateway.NewClient(b, cfg.AuthorizationWait)
	e.finalizer = finalizer.New(b, cfg.FinalizeAttempts, cfg.FinalizeBackoff)
	return e, nil
}

func (e *Engine) Close() error {
	if e.redis != nil {
		e.redis.Close() //nolint:errcheck
	}
	return e.db.Close()
}

// View is one execution context's handle on the shared cart: its store, its
// local bus and a running synchronizer.
type View struct {
	Store  *cartstore.Store
	Bus    *syncer.Bus
	cancel context.CancelFunc
}

// OpenView binds a new context to the given cart slot. Each view gets a
// fresh origin id so its own broadcasts are not echoed back as reloads.
func (e *Engine) OpenView(slot string) (*View, error) {
	store, err := cartstore.Open(e.db, slot, uuid.NewString())
	if err != nil {
		return nil, err
	}

	bus := syncer.NewBus()
	sync := syncer.New(store, bus, e.bc)

	ctx, cancel := context.WithCancel(context.Background())
	go sync.Run(ctx) //nolint:errcheck

	return &View{Store: store, Bus: bus, cancel: cancel}, nil
}

func (v *View) Close() {
	v.cancel()
}

// NewCheckout starts the state machine over the view's cart. One machine per
// attempt; a new attempt gets a new machine and a new idempotency key.
func (e *Engine) NewCheckout(v *View) *checkout.Machine {
	return checkout.NewMachine(v.Store, e.gateway, e.finalizer, e.cfg.Currency)
}

// CancelOrder cancels a previously finalized order with the backend.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	return e.finalizer.Cancel(ctx, orderID)
}

// CurrentOrder returns the locally retained order for invoice display, or
// nil when none was finalized or the invoice view was closed.
func (e *Engine) CurrentOrder() *domain.Order {
	return e.finalizer.CurrentOrder()
}

// CloseInvoice drops the transient order copy.
func (e *Engine) CloseInvoice() {
	e.finalizer.CloseInvoice()
}

// Invoice derives the receipt for a completed order.
func (e *Engine) Invoice(order domain.Order) domain.Invoice {
	return e.invoices.Assemble(order)
}
