package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTipFromPercent(t *testing.T) {
	tests := []struct {
		name  string
		total string
		pct   string
		want  string
	}{
		{name: "eighteenOnScenario", total: "114.33", pct: "18", want: "20.58"},
		{name: "tenOnScenario", total: "114.33", pct: "10", want: "11.43"},
		{name: "fifteenRoundsUp", total: "10.10", pct: "15", want: "1.52"},
		{name: "zeroTotal", total: "0", pct: "20", want: "0"},
		{name: "negativePercent", total: "50", pct: "-5", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TipFromPercent(d(tt.total), d(tt.pct))
			if !got.Equal(d(tt.want)) {
				t.Errorf("TipFromPercent(%s, %s) = %s, want %s", tt.total, tt.pct, got, tt.want)
			}
		})
	}
}

func TestTipPresetsAreRoundedProducts(t *testing.T) {
	totals := []string{"114.33", "7.99", "250.00", "0.01", "99.95"}
	for _, total := range totals {
		for _, p := range TipPresets {
			pct := decimal.NewFromInt(p)
			want := d(total).Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
			if got := TipFromPercent(d(total), pct); !got.Equal(want) {
				t.Errorf("TipFromPercent(%s, %d) = %s, want %s", total, p, got, want)
			}
		}
	}
}

func TestCheckoutScenario(t *testing.T) {
	ticket := Ticket(d("103.94"), DefaultTaxRate)
	if !ticket.Tax.Equal(d("10.39")) {
		t.Fatalf("tax = %s, want 10.39", ticket.Tax)
	}
	if !ticket.Total.Equal(d("114.33")) {
		t.Fatalf("total = %s, want 114.33", ticket.Total)
	}

	withTip := ticket.WithPercent(d("18"))
	if !withTip.Tip.Equal(d("20.58")) {
		t.Errorf("tip = %s, want 20.58", withTip.Tip)
	}
	if !withTip.GrandTotal.Equal(d("134.91")) {
		t.Errorf("grand total = %s, want 134.91", withTip.GrandTotal)
	}
}

func TestWithAmountImpliesPercent(t *testing.T) {
	ticket := Ticket(d("100"), d("0"))
	got := ticket.WithAmount(d("12.5"))
	if !got.TipPercent.Equal(d("12.5")) {
		t.Errorf("percent = %s, want 12.5", got.TipPercent)
	}
	if !got.GrandTotal.Equal(d("112.5")) {
		t.Errorf("grand total = %s, want 112.5", got.GrandTotal)
	}

	neg := ticket.WithAmount(d("-3"))
	if !neg.Tip.IsZero() || !neg.TipPercent.IsZero() {
		t.Errorf("negative tip should clamp to zero, got %s / %s", neg.Tip, neg.TipPercent)
	}
}

func TestPercentFromTipZeroTotal(t *testing.T) {
	if got := PercentFromTip(decimal.Zero, d("5")); !got.IsZero() {
		t.Errorf("PercentFromTip(0, 5) = %s, want 0", got)
	}
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, 1}, {0, 1}, {1, 1}, {5, 5}, {10, 10}, {11, 10}, {250, 10},
	}
	for _, tt := range tests {
		if got := ClampQuantity(tt.in); got != tt.want {
			t.Errorf("ClampQuantity(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if got := ClampQuantity(tt.in); !ValidQuantity(got) {
			t.Errorf("ClampQuantity(%d) = %d is outside the selector range", tt.in, got)
		}
	}
}

type line struct {
	price string
	qty   int
}

func (l line) LinePrice() decimal.Decimal { return d(l.price) }
func (l line) LineQuantity() int          { return l.qty }

func TestSubtotal(t *testing.T) {
	lines := []line{{"12.99", 2}, {"8.50", 3}, {"52.46", 1}}
	if got := Subtotal(lines); !got.Equal(d("103.94")) {
		t.Errorf("Subtotal() = %s, want 103.94", got)
	}
}
