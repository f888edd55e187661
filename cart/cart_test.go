package cart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"restaurant-pos-api/models"
)

func product(id uint, name, price string) models.Product {
	return models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestMissingFileIsEmpty(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cart.json"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func TestQuantityClamp(t *testing.T) {
	c, _ := Open(filepath.Join(t.TempDir(), "cart.json"))
	c.Add(product(1, "Espresso", "2.50"), 0, "")
	if got := c.Items()[0].Quantity; got != 1 {
		t.Errorf("quantity after Add(0) = %d, want 1", got)
	}
	c.Add(product(1, "Espresso", "2.50"), 25, "")
	if got := c.Items()[0].Quantity; got != 10 {
		t.Errorf("quantity after merge = %d, want 10", got)
	}
	tests := []struct{ set, want int }{{-3, 1}, {0, 1}, {5, 5}, {11, 10}}
	for _, tt := range tests {
		c.SetQuantity(0, tt.set)
		if got := c.Items()[0].Quantity; got != tt.want {
			t.Errorf("SetQuantity(%d) -> %d, want %d", tt.set, got, tt.want)
		}
	}
	if c.SetQuantity(4, 2) {
		t.Error("SetQuantity out of range should report false")
	}
}

func TestNotesKeepLinesApart(t *testing.T) {
	c, _ := Open(filepath.Join(t.TempDir(), "cart.json"))
	c.Add(product(2, "Margherita", "11.50"), 1, "")
	c.Add(product(2, "Margherita", "11.50"), 1, "sin albahaca")
	c.Add(product(2, "Margherita", "11.50"), 2, "")
	items := c.Items()
	if len(items) != 2 || items[0].Quantity != 3 || items[1].Notes != "sin albahaca" {
		t.Errorf("items = %+v", items)
	}
	c.Remove(0)
	if c.Len() != 1 {
		t.Errorf("Len() after Remove = %d", c.Len())
	}
}

func TestSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.json")
	c, _ := Open(path)
	c.Add(product(1, "Espresso", "2.50"), 2, "")
	c.Add(product(3, "Tiramisú", "6.00"), 1, "")
	if err := c.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"version": 1`) {
		t.Errorf("saved file lacks version envelope: %s", raw)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if again.Len() != 2 {
		t.Fatalf("reopened Len() = %d", again.Len())
	}
	totals := again.Totals(decimal.RequireFromString("0.10"))
	if totals.Subtotal.String() != "11" || totals.Tax.String() != "1.1" || totals.Total.String() != "12.1" {
		t.Errorf("totals = %+v", totals)
	}
}

func TestLegacyArrayIsMigrated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	legacy := `[{"product_id":7,"name":"Limonada","unit_price":"3.00","quantity":40}]`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	items := c.Items()
	if len(items) != 1 || items[0].ProductID != 7 || items[0].Quantity != 10 {
		t.Errorf("items = %+v", items)
	}
	raw, _ := os.ReadFile(path)
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		t.Errorf("legacy file was not rewritten: %s", raw)
	}
}

func TestUnknownVersionIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	_ = os.WriteFile(path, []byte(`{"version":9,"items":[]}`), 0o600)
	if _, err := Open(path); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Open() error = %v, want ErrUnknownFormat", err)
	}
}

func TestOrderRequest(t *testing.T) {
	c, _ := Open(filepath.Join(t.TempDir(), "cart.json"))
	c.Add(product(1, "Espresso", "2.50"), 2, "doble")
	req := c.OrderRequest(4, "Ana")
	if req.TableID != 4 || len(req.Items) != 1 || req.Items[0].Quantity != 2 || req.Items[0].Notes != "doble" {
		t.Errorf("request = %+v", req)
	}
}
