// Package cart keeps the POS shopping cart in a JSON file between sessions.
package cart

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"restaurant-pos-api/client"
	"restaurant-pos-api/models"
	"restaurant-pos-api/pricing"
)

// FormatVersion is written into every saved file.
const FormatVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrUnknownFormat = errors.New("unknown cart file format")

type Item struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
}

func (i Item) LinePrice() decimal.Decimal { return i.UnitPrice }
func (i Item) LineQuantity() int          { return i.Quantity }

type envelope struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

type Cart struct {
	path string

	mu    sync.Mutex
	items []Item
}

// Open loads the cart stored at path. A missing file gives an empty cart;
// a bare JSON array from older builds is read as version 1.
func Open(path string) (*Cart, error) {
	c := &Cart{path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read cart %s", path)
	}
	items, migrated, err := decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decode cart %s", path)
	}
	for i := range items {
		items[i].Quantity = pricing.ClampQuantity(items[i].Quantity)
	}
	c.items = items
	if migrated {
		zap.L().Info("migrating legacy cart file", zap.String("path", path), zap.Int("items", len(items)))
		if err := c.Save(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func decode(raw []byte) ([]Item, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false, nil
	}
	if raw[0] == '[' {
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false, err
		}
		return items, true, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, err
	}
	if env.Version != FormatVersion {
		return nil, false, errors.Wrapf(ErrUnknownFormat, "version %d", env.Version)
	}
	return env.Items, false, nil
}

// Save writes the cart atomically.
func (c *Cart) Save() error {
	c.mu.Lock()
	env := envelope{Version: FormatVersion, Items: append([]Item{}, c.items...)}
	c.mu.Unlock()

	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create cart dir")
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "write cart")
	}
	return errors.Wrap(os.Rename(tmp, c.path), "replace cart")
}

// Add puts a product in the cart, merging with an existing line without notes.
func (c *Cart) Add(p models.Product, quantity int, notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if notes == "" {
		for i := range c.items {
			if c.items[i].ProductID == p.ID && c.items[i].Notes == "" {
				c.items[i].Quantity = pricing.ClampQuantity(c.items[i].Quantity + quantity)
				return
			}
		}
	}
	c.items = append(c.items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  pricing.ClampQuantity(quantity),
		Notes:     notes,
	})
}

// SetQuantity changes line i, clamped to the allowed range.
func (c *Cart) SetQuantity(i, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		return false
	}
	c.items[i].Quantity = pricing.ClampQuantity(quantity)
	return true
}

func (c *Cart) Remove(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item{}, c.items...)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Totals prices the cart at the given tax rate.
func (c *Cart) Totals(rate decimal.Decimal) pricing.Totals {
	return pricing.Ticket(pricing.Subtotal(c.Items()), rate)
}

// OrderRequest turns the cart into a create-order body for a table.
func (c *Cart) OrderRequest(tableID uint, staff string) client.NewOrder {
	items := c.Items()
	req := client.NewOrder{TableID: tableID, StaffName: staff, Items: make([]client.NewOrderItem, 0, len(items))}
	for _, it := range items {
		req.Items = append(req.Items, client.NewOrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Notes: it.Notes})
	}
	return req
}
