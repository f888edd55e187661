package views

import (
	"context"
	"net/http"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"restaurant-pos-api/client"
	"restaurant-pos-api/models"
	"restaurant-pos-api/search"
	"restaurant-pos-api/statemachine"
)

var ErrNoAction = errors.New("no such action for this order")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type KitchenAPI interface {
	KitchenOrders(ctx context.Context) ([]client.KitchenOrder, error)
	UpdateOrderStatus(ctx context.Context, id uint, to models.OrderStatus, version int, note string) (*client.OrderResult, error)
	UpdateItemStatus(ctx context.Context, orderID, itemID uint, to models.ItemStatus, version int) (*client.OrderResult, error)
}

type KitchenFilter struct {
	Statuses   []models.OrderStatus
	Priorities []models.Priority
	Query      string
}

// KitchenBoard drives the kitchen display.
type KitchenBoard struct {
	api     KitchenAPI
	actor   statemachine.Actor
	orders  *Store[client.KitchenOrder]
	loader  Loader
	notices noticeLog
	now     func() time.Time
}

// NewKitchenBoard builds a board for a user acting as actor.
func NewKitchenBoard(api KitchenAPI, actor statemachine.Actor) *KitchenBoard {
	return &KitchenBoard{
		api:   api,
		actor: actor,
		orders: NewStore(
			func(o client.KitchenOrder) uint { return o.ID },
			func(o client.KitchenOrder) int { return o.Version },
		),
		now: time.Now,
	}
}

// Load fetches the kitchen queue, cancelling any load still in flight.
func (b *KitchenBoard) Load(ctx context.Context) error {
	return b.loader.Run(ctx, func(ctx context.Context) (func(), error) {
		since := b.orders.Mark()
		orders, err := b.api.KitchenOrders(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load kitchen orders")
		}
		return func() { b.orders.Replace(orders, since) }, nil
	})
}

func (b *KitchenBoard) Order(id uint) (client.KitchenOrder, bool) {
	return b.orders.Get(id)
}

// Visible returns the orders passing f, most urgent first then oldest first.
func (b *KitchenBoard) Visible(f KitchenFilter) []client.KitchenOrder {
	statuses := search.NewFacet(f.Statuses...)
	priorities := search.NewFacet(f.Priorities...)
	out := search.Filter(b.orders.All(), func(o client.KitchenOrder) bool {
		return statuses.Allows(o.Status) && priorities.Allows(o.Priority) && kitchenMatches(f.Query, o)
	})
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func kitchenMatches(q string, o client.KitchenOrder) bool {
	fields := []string{o.StaffName, o.Notes}
	for _, it := range o.Items {
		fields = append(fields, it.Name, it.Notes)
	}
	return search.Matches(q, fields...)
}

// Grouped buckets the visible orders into kitchen columns.
func (b *KitchenBoard) Grouped(f KitchenFilter) map[models.OrderStatus][]client.KitchenOrder {
	return search.GroupBy(b.Visible(f), func(o client.KitchenOrder) models.OrderStatus { return o.Status })
}

// Advance applies the order's forward action.
func (b *KitchenBoard) Advance(ctx context.Context, id uint) error {
	return b.step(ctx, id, statemachine.Forward)
}

// Back applies the order's backward action.
func (b *KitchenBoard) Back(ctx context.Context, id uint) error {
	return b.step(ctx, id, statemachine.Back)
}

func (b *KitchenBoard) step(ctx context.Context, id uint, dir statemachine.Direction) error {
	o, ok := b.orders.Get(id)
	if !ok {
		return errors.Errorf("order %d is not on the board", id)
	}
	for _, a := range o.Actions {
		if a.Direction == dir && a.To != models.StatusCancelled {
			return b.Transition(ctx, id, a.To, "")
		}
	}
	return errors.Wrapf(ErrNoAction, "%s from %s", dir, o.Status)
}

// Transition sends a status change with the stored version. Failures leave the
// board unchanged apart from a notice; a version conflict adopts the server copy.
func (b *KitchenBoard) Transition(ctx context.Context, id uint, to models.OrderStatus, note string) error {
	o, ok := b.orders.Get(id)
	if !ok {
		return errors.Errorf("order %d is not on the board", id)
	}
	res, err := b.api.UpdateOrderStatus(ctx, id, to, o.Version, note)
	if err != nil {
		b.fail(o, err)
		return err
	}
	b.apply(o.TableNumber, res)
	return nil
}

// SetItemStatus bumps one line. The server may roll the order up to ready.
func (b *KitchenBoard) SetItemStatus(ctx context.Context, orderID, itemID uint, to models.ItemStatus) error {
	o, ok := b.orders.Get(orderID)
	if !ok {
		return errors.Errorf("order %d is not on the board", orderID)
	}
	res, err := b.api.UpdateItemStatus(ctx, orderID, itemID, to, o.Version)
	if err != nil {
		b.fail(o, err)
		return err
	}
	b.apply(o.TableNumber, res)
	return nil
}

func (b *KitchenBoard) apply(tableNumber int, res *client.OrderResult) {
	if !statemachine.IsKitchen(res.Order.Status) {
		b.orders.Delete(res.Order.ID)
		return
	}
	b.orders.Patch(client.KitchenOrder{Order: res.Order, TableNumber: tableNumber, Actions: res.Actions})
}

func (b *KitchenBoard) fail(o client.KitchenOrder, err error) {
	zap.L().Warn("kitchen action failed", zap.Uint("order_id", o.ID), zap.Int("version", o.Version), zap.Error(err))
	b.notices.add(b.now(), o.ID, err.Error())

	var current struct {
		Order models.Order `json:"order"`
	}
	if !conflictBody(err, &current) || current.Order.ID != o.ID {
		return
	}
	if !statemachine.IsKitchen(current.Order.Status) {
		b.orders.Delete(o.ID)
		return
	}
	o.Order = current.Order
	o.Actions = statemachine.ActionsFor(current.Order.Status, b.actor)
	b.orders.Patch(o)
}

// Notices returns and clears the pending failure notices.
func (b *KitchenBoard) Notices() []Notice {
	return b.notices.drain()
}

// conflictBody decodes the server's current record from a 409 response.
func conflictBody(err error, out interface{}) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		return false
	}
	return json.Unmarshal(apiErr.Body, out) == nil
}
