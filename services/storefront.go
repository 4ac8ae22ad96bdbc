package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"bitenow/config"
	"bitenow/metrics"
	"bitenow/models"
)

const (
	StatusLoading    = "loading..."
	StatusLoadFailed = "Could not load menu."
)

var (
	ErrEmptyCart     = errors.New("cart subtotal is zero")
	ErrOrderInFlight = errors.New("an order is already being placed")
	ErrUnknownItem   = errors.New("item is not on the menu")
	ErrSoldOut       = errors.New("item is sold out")
)

// Storefront is one ordering session: a menu, a cart and the placing flag.
// It is safe for concurrent use; PlaceOrder does not hold the lock while the
// request is on the wire.
type Storefront struct {
	backend  Backend
	customer models.Customer
	log      logrus.FieldLogger

	mu      sync.Mutex
	menu    []models.MenuItem
	status  string
	cart    *Cart
	placing bool
}

func NewStorefront(backend Backend, cfg *config.Config, log logrus.FieldLogger) *Storefront {
	return &Storefront{
		backend: backend,
		customer: models.Customer{
			Name:    cfg.Customer.Name,
			Phone:   cfg.Customer.Phone,
			Address: cfg.Customer.Address,
		},
		log:    log,
		status: StatusLoading,
		cart:   NewCart(cfg.Delivery.Fee),
	}
}

// LoadMenu fetches the menu once. On failure the menu is left empty and the
// status text reports the error.
func (s *Storefront) LoadMenu(ctx context.Context) error {
	items, err := s.backend.FetchMenu(ctx)
	metrics.RecordMenuLoad(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.WithError(err).Warn("menu load failed")
		s.menu = nil
		s.status = StatusLoadFailed
		return err
	}
	s.menu = items
	s.status = ""
	return nil
}

// Status is the user-visible menu status line; empty when the menu is loaded.
func (s *Storefront) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Storefront) Menu() []models.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MenuItem, len(s.menu))
	copy(out, s.menu)
	return out
}

func (s *Storefront) Item(id models.ItemID) (models.MenuItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemLocked(id)
}

func (s *Storefront) itemLocked(id models.ItemID) (models.MenuItem, bool) {
	for _, it := range s.menu {
		if it.ID.Same(id) {
			return it, true
		}
	}
	return models.MenuItem{}, false
}

// Add puts one more of a menu item in the cart. Unlike Cart.Add it refuses
// items that are not currently available.
func (s *Storefront) Add(id models.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.itemLocked(id)
	if !ok {
		return ErrUnknownItem
	}
	if !item.Available {
		return ErrSoldOut
	}
	s.cart.Add(item)
	return nil
}

func (s *Storefront) Remove(id models.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(id)
}

// Cart returns the entries in insertion order.
func (s *Storefront) Cart() []models.CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Entries()
}

func (s *Storefront) Totals() models.Pricing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

func (s *Storefront) Placing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placing
}

// PlaceOrder submits the cart. It does nothing when the subtotal is zero or
// another submission is pending. On success the cart is cleared; on failure
// it is kept as is.
func (s *Storefront) PlaceOrder(ctx context.Context) (*models.OrderReceipt, error) {
	submit, err := s.BeginPlace()
	if err != nil {
		return nil, err
	}
	return submit(ctx)
}

// SubmitFunc sends an order prepared by BeginPlace. It must be called exactly
// once; the placing flag stays set until it returns.
type SubmitFunc func(ctx context.Context) (*models.OrderReceipt, error)

// BeginPlace sets the placing flag and snapshots the cart into a request
// without touching the network. It fails with ErrOrderInFlight while another
// submission is pending and with ErrEmptyCart when the subtotal is zero.
func (s *Storefront) BeginPlace() (SubmitFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placing {
		return nil, ErrOrderInFlight
	}
	pricing := s.cart.Totals()
	if !pricing.Subtotal.IsPositive() {
		return nil, ErrEmptyCart
	}
	req := BuildOrderRequest(s.customer, s.cart.Lines(), pricing)
	s.placing = true

	return func(ctx context.Context) (*models.OrderReceipt, error) {
		receipt, err := s.backend.SubmitOrder(ctx, req)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.placing = false
		if err != nil {
			return nil, err
		}
		s.cart.Clear()
		return receipt, nil
	}, nil
}

// BuildOrderRequest snapshots the cart into the POST /orders payload.
func BuildOrderRequest(c models.Customer, lines []models.OrderLine, p models.Pricing) models.OrderRequest {
	return models.OrderRequest{
		CustomerName:    c.Name,
		CustomerPhone:   c.Phone,
		CustomerAddress: c.Address,
		Items:           lines,
		Subtotal:        p.Subtotal,
		DeliveryFee:     p.DeliveryFee,
		Total:           p.Total,
		Status:          models.OrderStatusPending,
	}
}
