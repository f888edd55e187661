package views

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"restaurant-pos-api/cart"
	"restaurant-pos-api/client"
	"restaurant-pos-api/models"
	"restaurant-pos-api/pricing"
)

var (
	ErrNotPayable = errors.New("order is not ready for payment")
	ErrEmptyCart  = errors.New("cart is empty")
)

type CheckoutAPI interface {
	Checkout(ctx context.Context, orderID uint, req client.CheckoutRequest, idempotencyKey string) (*client.CheckoutResult, error)
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, o client.NewOrder) (*models.Order, error)
}

// POSSession is one checkout at the till. The idempotency key is fixed for
// the session, so paying again after a lost response cannot charge twice.
type POSSession struct {
	api   CheckoutAPI
	order models.Order
	key   string

	mu        sync.Mutex
	totals    pricing.Totals
	byPercent bool
	method    models.PaymentMethod
	result    *client.CheckoutResult
}

func NewPOSSession(api CheckoutAPI, order models.Order) *POSSession {
	return &POSSession{
		api:   api,
		order: order,
		key:   uuid.NewString(),
		totals: pricing.Totals{
			Subtotal:   order.Subtotal,
			Tax:        order.Tax,
			Total:      order.Total,
			Tip:        decimal.Zero,
			TipPercent: decimal.Zero,
			GrandTotal: order.Total,
		},
		method: models.PaymentCard,
	}
}

// SelectPercent picks a tip percentage; the amount is derived from it.
func (s *POSSession) SelectPercent(pct decimal.Decimal) pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = s.totals.WithPercent(pct)
	s.byPercent = true
	return s.totals
}

// SetTipAmount types a tip; the shown percentage follows but is not fed back.
func (s *POSSession) SetTipAmount(amount decimal.Decimal) pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = s.totals.WithAmount(amount)
	s.byPercent = false
	return s.totals
}

func (s *POSSession) SetMethod(m models.PaymentMethod) {
	s.mu.Lock()
	s.method = m
	s.mu.Unlock()
}

func (s *POSSession) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

func (s *POSSession) Key() string { return s.key }

// Pay submits the checkout. A session that already paid returns the stored
// result without calling the server.
func (s *POSSession) Pay(ctx context.Context) (*client.CheckoutResult, error) {
	s.mu.Lock()
	if s.result != nil {
		res := s.result
		s.mu.Unlock()
		return res, nil
	}
	if s.order.Status != models.StatusReady && s.order.Status != models.StatusDelivered {
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrNotPayable, "order %d is %s", s.order.ID, s.order.Status)
	}
	req := client.CheckoutRequest{Method: s.method}
	if s.byPercent {
		pct := s.totals.TipPercent
		req.TipPercent = &pct
	} else {
		tip := s.totals.Tip
		req.TipAmount = &tip
	}
	s.mu.Unlock()

	res, err := s.api.Checkout(ctx, s.order.ID, req, s.key)
	if err != nil {
		zap.L().Warn("checkout failed", zap.Uint("order_id", s.order.ID), zap.String("key", s.key), zap.Error(err))
		return nil, err
	}
	s.mu.Lock()
	s.result = res
	s.order = res.Order
	s.mu.Unlock()
	return res, nil
}

// PlaceCart opens an order for tableID from the cart and empties the cart
// once the server has accepted it.
func PlaceCart(ctx context.Context, api OrderAPI, c *cart.Cart, tableID uint, staff string) (*models.Order, error) {
	if c.Len() == 0 {
		return nil, ErrEmptyCart
	}
	order, err := api.CreateOrder(ctx, c.OrderRequest(tableID, staff))
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := c.Save(); err != nil {
		zap.L().Error("order placed but cart not cleared on disk", zap.Uint("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}
