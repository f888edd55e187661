package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"restaurant-pos-api/models"
	"restaurant-pos-api/pricing"
	"restaurant-pos-api/statemachine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KitchenOrder is one ticket from /api/orders/kitchen.
type KitchenOrder struct {
	models.Order
	TableNumber int                   `json:"table_number"`
	Actions     []statemachine.Action `json:"actions"`
}

// OrderResult is the body of a status or item update.
type OrderResult struct {
	Order    models.Order          `json:"order"`
	Actions  []statemachine.Action `json:"actions"`
	RolledUp bool                  `json:"rolled_up"`
}

type NewOrderItem struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type NewOrder struct {
	TableID   uint            `json:"table_id"`
	Priority  models.Priority `json:"priority,omitempty"`
	StaffName string          `json:"staff_name,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Items     []NewOrderItem  `json:"items"`
}

type CheckoutRequest struct {
	TipPercent *decimal.Decimal     `json:"tip_percent,omitempty"`
	TipAmount  *decimal.Decimal     `json:"tip_amount,omitempty"`
	Method     models.PaymentMethod `json:"method,omitempty"`
}

type CheckoutResult struct {
	Payment models.Payment `json:"payment"`
	Order   models.Order   `json:"order"`
	Totals  pricing.Totals `json:"totals"`
	Replay  bool           `json:"replay"`
}

type OrderFilter struct {
	Statuses []models.OrderStatus
	TableID  uint
	Query    string
	Active   bool
}

func (c *Client) CreateOrder(ctx context.Context, o NewOrder) (*models.Order, error) {
	var resp struct {
		Order models.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, o, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	v := url.Values{}
	if len(f.Statuses) > 0 {
		v.Set("status", joinList(f.Statuses))
	}
	if f.TableID != 0 {
		v.Set("table_id", idStr(f.TableID))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Active {
		v.Set("active", strconv.FormatBool(true))
	}
	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders", v, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id uint) (*OrderResult, error) {
	var resp OrderResult
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+idStr(id), nil, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) KitchenOrders(ctx context.Context) ([]KitchenOrder, error) {
	var resp struct {
		Orders []KitchenOrder `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/kitchen", nil, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// UpdateOrderStatus requests a transition. A version > 0 makes it conditional.
func (c *Client) UpdateOrderStatus(ctx context.Context, id uint, to models.OrderStatus, version int, note string) (*OrderResult, error) {
	body := map[string]interface{}{"status": to}
	if version > 0 {
		body["version"] = version
	}
	if note != "" {
		body["note"] = note
	}
	var resp OrderResult
	if err := c.do(ctx, http.MethodPatch, "/api/orders/"+idStr(id)+"/status", nil, body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateItemStatus(ctx context.Context, orderID, itemID uint, to models.ItemStatus, version int) (*OrderResult, error) {
	body := map[string]interface{}{"status": to}
	if version > 0 {
		body["version"] = version
	}
	var resp OrderResult
	path := "/api/orders/" + idStr(orderID) + "/items/" + idStr(itemID) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Checkout pays an order. An empty key gets a fresh one; reuse a key to
// retry safely.
func (c *Client) Checkout(ctx context.Context, orderID uint, req CheckoutRequest, idempotencyKey string) (*CheckoutResult, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	var resp CheckoutResult
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.do(ctx, http.MethodPost, "/api/orders/"+idStr(orderID)+"/checkout", nil, req, &resp, headers); err != nil {
		return nil, err
	}
	return &resp, nil
}
